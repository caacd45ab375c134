package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getfleetsim/fleetsim/pkg/config"
	"github.com/getfleetsim/fleetsim/pkg/store"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a fleetsim configuration file without running anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		if path == "" {
			return fmt.Errorf("--config is required")
		}

		cfg, err := config.LoadFromFile(path)
		if err != nil {
			return err
		}

		// Inline templates get the same schema check they would at runtime.
		s, err := store.New("", nil, nil)
		if err != nil {
			return err
		}
		s.SeedBuiltins()
		for i := range cfg.Templates {
			if err := s.Save(&cfg.Templates[i]); err != nil {
				return fmt.Errorf("template %q: %w", cfg.Templates[i].Name, err)
			}
		}

		// Every device must reference a resolvable template, unless templates
		// come from a directory only scanned at runtime.
		if cfg.TemplateDir == "" {
			for _, d := range cfg.Devices {
				if _, err := s.Get(d.Template); err != nil {
					return fmt.Errorf("device template %q: %w", d.Template, err)
				}
			}
		}

		deviceCount := 0
		for i := range cfg.Devices {
			deviceCount += len(cfg.Devices[i].DeviceIDs())
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: OK (%d devices, %d templates, hub mode %s)\n",
			path, deviceCount, len(s.List()), cfg.Hub.Mode)
		return nil
	},
}

func init() {
	validateCmd.Flags().StringP("config", "f", "", "Config file path")
	rootCmd.AddCommand(validateCmd)
}
