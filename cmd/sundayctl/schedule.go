package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	scheduleCmd := &cobra.Command{Use: "schedule", Short: "Schedule workflow operations"}

	var dateFlag, refineFlag string
	synthesizeCmd := &cobra.Command{
		Use:   "synthesize",
		Short: "Synthesize a pending schedule from the day's transcripts",
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]string{}
			if refineFlag != "" {
				payload["refinement"] = refineFlag
			} else if dateFlag != "" {
				payload["date"] = dateFlag
			}
			data, err := doPostJSON(fmt.Sprintf("%s/api/schedule/synthesize", apiFlag), payload)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	synthesizeCmd.Flags().StringVarP(&dateFlag, "date", "d", "", "Local day to synthesize (YYYY-MM-DD)")
	synthesizeCmd.Flags().StringVarP(&refineFlag, "refine", "r", "", "Refinement instruction for the open session")
	scheduleCmd.AddCommand(synthesizeCmd)

	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "Show the in-review batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("%s/api/schedule/pending", apiFlag))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	scheduleCmd.AddCommand(pendingCmd)

	approveCmd := &cobra.Command{
		Use:   "approve ENTRY_ID",
		Short: "Approve a pending entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doPostJSON(fmt.Sprintf("%s/api/schedule/pending/%s/approve", apiFlag, args[0]), nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	scheduleCmd.AddCommand(approveCmd)

	var reasonFlag string
	rejectCmd := &cobra.Command{
		Use:   "reject ENTRY_ID",
		Short: "Reject a pending entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if reasonFlag == "" {
				return fmt.Errorf("--reason required")
			}
			data, err := doPostJSON(fmt.Sprintf("%s/api/schedule/pending/%s/reject", apiFlag, args[0]),
				map[string]string{"reason": reasonFlag})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rejectCmd.Flags().StringVarP(&reasonFlag, "reason", "r", "", "Rejection reason (required)")
	_ = rejectCmd.MarkFlagRequired("reason")
	scheduleCmd.AddCommand(rejectCmd)

	var textFlag string
	correctCmd := &cobra.Command{
		Use:   "correct ENTRY_ID",
		Short: "Ask the model to correct a pending entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if textFlag == "" {
				return fmt.Errorf("--text required")
			}
			data, err := doPostJSON(fmt.Sprintf("%s/api/schedule/pending/%s/correct", apiFlag, args[0]),
				map[string]string{"text": textFlag})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	correctCmd.Flags().StringVarP(&textFlag, "text", "t", "", "Correction instruction (required)")
	_ = correctCmd.MarkFlagRequired("text")
	scheduleCmd.AddCommand(correctCmd)

	confirmCmd := &cobra.Command{
		Use:   "confirm",
		Short: "Archive the current batch as a confirmed schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doPostJSON(fmt.Sprintf("%s/api/schedule/confirm", apiFlag), nil)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	scheduleCmd.AddCommand(confirmCmd)

	confirmedCmd := &cobra.Command{
		Use:   "confirmed [SCHEDULE_ID]",
		Short: "List confirmed schedules, or show one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("%s/api/schedule/confirmed", apiFlag)
			if len(args) == 1 {
				url += "/" + args[0]
			}
			data, err := doGet(url)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	scheduleCmd.AddCommand(confirmedCmd)

	insightsCmd := &cobra.Command{
		Use:   "insights SCHEDULE_ID",
		Short: "Show category insights for a confirmed schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("%s/api/schedule/confirmed/%s/insights", apiFlag, args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	scheduleCmd.AddCommand(insightsCmd)

	calendarCmd := &cobra.Command{
		Use:   "calendar SCHEDULE_ID",
		Short: "Print the iCalendar export for a confirmed schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := doGet(fmt.Sprintf("%s/api/schedule/confirmed/%s/calendar.ics", apiFlag, args[0]))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(os.Stdout, string(data))
			return nil
		},
	}
	scheduleCmd.AddCommand(calendarCmd)

	rootCmd.AddCommand(scheduleCmd)
}
