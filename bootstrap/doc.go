// Package bootstrap runs a hollowfoot process: it validates the
// configuration, initializes logging and OpenTelemetry, prepares the
// operation registry and shuts everything down when the task ends.
//
//	app, err := bootstrap.NewApp(&cfg)
//	if err != nil {
//	    return err
//	}
//	return app.RunTask(ctx, func(ctx context.Context) error {
//	    a := analysis.FromSource("data/ni", app.AnalysisOptions()...).Merge()
//	    _, err := a.Calculate(ctx)
//	    return err
//	})
package bootstrap
