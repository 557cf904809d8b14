package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List resolved providers and their circuit states",
	RunE: func(cmd *cobra.Command, args []string) error {
		fo, err := initFanout()
		if err != nil {
			return err
		}

		states := fo.BreakerStates()
		type providerInfo struct {
			Name    string `json:"name"`
			Circuit string `json:"circuit"`
		}
		var infos []providerInfo
		for _, name := range fo.Providers() {
			circuit := "closed"
			if s, ok := states[name]; ok {
				circuit = s.String()
			}
			infos = append(infos, providerInfo{Name: name, Circuit: circuit})
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}
