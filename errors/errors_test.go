package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeInvalidInput, "bad")
	if err.Code != ErrCodeInvalidInput {
		t.Errorf("expected code %s, got %s", ErrCodeInvalidInput, err.Code)
	}
	if err.Message != "bad" {
		t.Errorf("expected message 'bad', got %q", err.Message)
	}
	if err.Error() != "INVALID_INPUT: bad" {
		t.Errorf("unexpected Error(): %q", err.Error())
	}
}

func TestAppError_ErrorIncludesCause(t *testing.T) {
	err := Internal(fmt.Errorf("disk gone"))
	if !strings.Contains(err.Error(), "disk gone") {
		t.Errorf("expected cause in message, got %q", err.Error())
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("root")
	err := Evaluation(2, "merge()", cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
}

func TestAppError_WithDetails(t *testing.T) {
	err := New(ErrCodeInternal, "x").
		WithDetail("a", 1).
		WithDetails(map[string]any{"b": 2})
	if err.Details["a"] != 1 || err.Details["b"] != 2 {
		t.Errorf("unexpected details: %v", err.Details)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
	}{
		{"duplicate", DuplicateOperation("merge"), ErrCodeDuplicateOperation},
		{"unknown", UnknownOperation("nope"), ErrCodeUnknownOperation},
		{"schema", InvalidSchema("merge", "empty param"), ErrCodeInvalidSchema},
		{"argument", ArgumentValidation("to_mu", "bad_col", "is not declared"), ErrCodeArgumentValidation},
		{"frozen", FrozenRegistry("late"), ErrCodeFrozenRegistry},
		{"type", TypeMismatch("to_mu", "missing array"), ErrCodeTypeMismatch},
		{"source", SourceLoad("/data", nil), ErrCodeSourceLoad},
		{"input", InvalidInput("index", "out of range"), ErrCodeInvalidInput},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("expected %s, got %s", tc.code, tc.err.Code)
			}
		})
	}
}

func TestArgumentValidation_Message(t *testing.T) {
	err := ArgumentValidation("to_mu", "bad_col", "is not declared")
	if !strings.Contains(err.Message, `"bad_col"`) {
		t.Errorf("expected argument name in message, got %q", err.Message)
	}
	if err.Details[DetailArgument] != "bad_col" {
		t.Errorf("expected argument detail, got %v", err.Details)
	}
}

func TestHasCode_WalksChain(t *testing.T) {
	load := SourceLoad("/data/ni", stderrors.New("no such file"))
	eval := Evaluation(0, "from_source(/data/ni)", load)
	wrapped := fmt.Errorf("running recipe: %w", eval)

	if !HasCode(wrapped, ErrCodeEvaluation) {
		t.Error("expected EVALUATION_FAILED in chain")
	}
	if !HasCode(wrapped, ErrCodeSourceLoad) {
		t.Error("expected SOURCE_LOAD_FAILED in chain")
	}
	if HasCode(wrapped, ErrCodeTypeMismatch) {
		t.Error("did not expect TYPE_MISMATCH in chain")
	}
	if HasCode(nil, ErrCodeInternal) {
		t.Error("nil error has no code")
	}
}

func TestStepIndex(t *testing.T) {
	err := fmt.Errorf("outer: %w", Evaluation(3, "plot_mu()", stderrors.New("boom")))
	idx, ok := StepIndex(err)
	if !ok || idx != 3 {
		t.Errorf("expected index 3, got %d (ok=%v)", idx, ok)
	}
	if _, ok := StepIndex(stderrors.New("plain")); ok {
		t.Error("expected no index for plain error")
	}
}

func TestStepFailed(t *testing.T) {
	cause := stderrors.New("fit diverged")
	err := StepFailed("fit_edge_jump()", cause)
	if err.Code != ErrCodeEvaluation {
		t.Errorf("expected EVALUATION_FAILED, got %s", err.Code)
	}
	if !stderrors.Is(err, cause) {
		t.Error("cause not reachable")
	}
	if _, ok := StepIndex(err); ok {
		t.Error("step failure outside a pipeline has no index")
	}
}

func TestAsAppError(t *testing.T) {
	err := fmt.Errorf("wrap: %w", UnknownOperation("x"))
	appErr, ok := AsAppError(err)
	if !ok || appErr.Code != ErrCodeUnknownOperation {
		t.Fatalf("expected UNKNOWN_OPERATION, got %v", appErr)
	}
	if !IsAppError(err) {
		t.Error("expected IsAppError true")
	}
	if IsAppError(stderrors.New("plain")) {
		t.Error("expected IsAppError false for plain error")
	}
}
