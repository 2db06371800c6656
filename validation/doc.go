// Package validation provides input validation for hollowfoot.
//
// Two styles are supported. Struct validation uses go-playground/validator
// tags and reports every failing field at once:
//
//	type Param struct {
//	    Name string `json:"name" validate:"required"`
//	}
//	err := validation.Validate(param)
//
// The fluent Validator collects checks and can report either all of them or
// only the first one, which is what argument validation needs:
//
//	v := validation.New()
//	v.Required("energy", name).Range("pre1", pre1, -1000, 0)
//	if fe := v.First(); fe != nil { ... }
package validation
