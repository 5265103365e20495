package cli

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"
)

var (
	dedupeOwner      string
	dedupeAutoAccept bool
	identityOwner    string
)

var dedupeCmd = &cobra.Command{
	Use:   "dedupe",
	Short: "Find duplicate entities for an owner and record merge suggestions",
	RunE:  runDedupe,
}

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Link an owner's identity mentions with SAME_AS relationships",
	RunE:  runIdentity,
}

func init() {
	dedupeCmd.Flags().StringVar(&dedupeOwner, "owner", "", "owner whose entities are compared")
	dedupeCmd.Flags().BoolVar(&dedupeAutoAccept, "auto-accept", false, "accept suggestions at or above 0.95 (default: RECALL_AUTO_ACCEPT)")
	_ = dedupeCmd.MarkFlagRequired("owner")

	identityCmd.Flags().StringVar(&identityOwner, "owner", "", "owner whose identity mentions are linked")
	_ = identityCmd.MarkFlagRequired("owner")
}

func runDedupe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	autoAccept := a.cfg.Engine.AutoAcceptHighConfidence
	if cmd.Flags().Changed("auto-accept") {
		autoAccept = dedupeAutoAccept
	}

	result, err := a.mergePipeline().Run(contextOrBackground(cmd), dedupeOwner, autoAccept)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func runIdentity(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.identityBuilder().Persist(contextOrBackground(cmd), identityOwner)
	if err != nil {
		return err
	}
	if result.Failed > 0 {
		_ = printJSON(cmd.OutOrStdout(), result)
		return errors.New("some identity edges could not be saved")
	}
	return printJSON(cmd.OutOrStdout(), result)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
