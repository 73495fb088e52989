package main

import (
	"fmt"
	"strings"

	"github.com/PancyStudios/PancyDash/internal/control"
	"github.com/spf13/cobra"
)

func newDevModeCmd() *cobra.Command {
	devModeCmd := &cobra.Command{
		Use:   "devmode",
		Short: "Read or toggle the bot's dev mode",
	}

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Show the current dev-mode document",
		Args:  cobra.NoArgs,
		RunE:  runDevModeGet,
	}
	setCmd := &cobra.Command{
		Use:       "set <on|off>",
		Short:     "Enable or disable dev mode; the bot announces the change",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE:      runDevModeSet,
	}

	devModeCmd.AddCommand(getCmd, setCmd)
	return devModeCmd
}

func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "true", "enable", "enabled":
		return true, nil
	case "off", "false", "disable", "disabled":
		return false, nil
	}
	return false, fmt.Errorf("invalid value %q, expected on or off", s)
}

func runDevModeGet(cmd *cobra.Command, args []string) error {
	doc, err := control.NewService(store, nil).DevMode(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	state := "disabled"
	if doc.Enabled {
		state = "enabled"
	}
	fmt.Fprintf(out, "Dev mode: %s\n", state)
	if !doc.LastToggled.IsZero() {
		fmt.Fprintf(out, "Last toggled: %s by %s (%s) from %s\n",
			formatTime(doc.LastToggled), doc.ToggledBy, doc.ToggledByUserID, doc.ToggledFrom)
	}
	return nil
}

func runDevModeSet(cmd *cobra.Command, args []string) error {
	enabled, err := parseSwitch(args[0])
	if err != nil {
		return err
	}
	if err := control.NewService(store, nil).SetDevMode(cmd.Context(), actor(), enabled, control.SourceCLI); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Dev mode set to %s.\n", args[0])
	return nil
}
