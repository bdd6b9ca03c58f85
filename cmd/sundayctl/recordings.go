package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	recordingsCmd := &cobra.Command{Use: "recordings", Short: "Recording operations"}

	var dateFlag string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recordings, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("%s/api/recordings", apiFlag)
			if dateFlag != "" {
				url += "?date=" + dateFlag
			}
			data, err := doGet(url)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	listCmd.Flags().StringVarP(&dateFlag, "date", "d", "", "Filter by local day (YYYY-MM-DD)")
	recordingsCmd.AddCommand(listCmd)

	getCmd := &cobra.Command{
		Use:   "get RECORDING_ID",
		Short: "Get one recording's metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("%s/api/recordings/%s", apiFlag, args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	recordingsCmd.AddCommand(getCmd)

	transcribeCmd := &cobra.Command{
		Use:   "transcribe RECORDING_ID",
		Short: "Kick off transcription for a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doPostJSON(fmt.Sprintf("%s/api/recordings/%s/transcribe", apiFlag, args[0]), nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	recordingsCmd.AddCommand(transcribeCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete RECORDING_ID",
		Short: "Delete a recording",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := doDelete(fmt.Sprintf("%s/api/recordings/%s", apiFlag, args[0]))
			return err
		},
	}
	recordingsCmd.AddCommand(deleteCmd)

	rootCmd.AddCommand(recordingsCmd)
}
