// Package config handles loading and validating car park core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables (CARPARK_*)
//   - Validation of required fields
//   - Default value handling
//
// The process configuration is distinct from the lot snapshot (the small JSON
// file written by carpark.CarPark.WriteConfig). This package only points at
// that file via carpark.snapshot_file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.CarPark.Location)
package config
