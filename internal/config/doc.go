// Package config provides configuration loading for the morph service.
//
// Configuration is read from a YAML file with environment variable
// substitution, validated with struct tags and cross-field checks, and
// optionally watched for changes so the service can swap its formatter
// catalog and transformation rules without a restart.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("morphd.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// # File Watching
//
//	watcher, err := config.NewWatcher(path, func(cfg *config.Config) {
//	    // rebuild runtime
//	}, config.WithWatcherLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = watcher.Start(ctx)
package config
