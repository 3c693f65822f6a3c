package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type ruleInfo struct {
	ID          int64   `json:"id"`
	SensorID    string  `json:"sensor_id"`
	Type        string  `json:"type"`
	Low         float64 `json:"low"`
	High        float64 `json:"high"`
	Enabled     bool    `json:"enabled"`
	Description string  `json:"description"`
	MutedUntil  string  `json:"muted_until"`
}

var (
	muteFor   string
	muteUntil string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage alarm rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list <sensor-id>",
	Short: "List alarm rules for a sensor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var rules []ruleInfo
		if err := client.get("/api/v1/sensors/"+args[0]+"/alarms", &rules); err != nil {
			return err
		}

		if GetOutput() == "json" {
			printJSON(rules)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTYPE\tLOW\tHIGH\tENABLED\tMUTED UNTIL")
		for _, r := range rules {
			muted := r.MutedUntil
			if muted == "" {
				muted = "-"
			}
			fmt.Fprintf(w, "%d\t%s\t%g\t%g\t%t\t%s\n", r.ID, r.Type, r.Low, r.High, r.Enabled, muted)
		}
		return w.Flush()
	},
}

var rulesEnableCmd = &cobra.Command{
	Use:   "enable <rule-id>",
	Short: "Enable an alarm rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleRule(args[0], "enable")
	},
}

var rulesDisableCmd = &cobra.Command{
	Use:   "disable <rule-id>",
	Short: "Disable an alarm rule and retract its notification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleRule(args[0], "disable")
	},
}

var rulesMuteCmd = &cobra.Command{
	Use:   "mute <rule-id>",
	Short: "Silence an alarm rule for a while",
	Long: `Silence an alarm rule. A muted rule keeps evaluating but sends no
new notifications until the mute expires.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if muteFor == "" && muteUntil == "" {
			return fmt.Errorf("either --for or --until is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		body := map[string]string{}
		if muteFor != "" {
			body["duration"] = muteFor
		}
		if muteUntil != "" {
			body["until"] = muteUntil
		}

		var rule ruleInfo
		if err := client.post("/api/v1/alarms/"+args[0]+"/mute", body, &rule); err != nil {
			return err
		}
		fmt.Printf("rule %d muted until %s\n", rule.ID, rule.MutedUntil)
		return nil
	},
}

var rulesUnmuteCmd = &cobra.Command{
	Use:   "unmute <rule-id>",
	Short: "Lift the mute on an alarm rule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var rule ruleInfo
		if err := client.post("/api/v1/alarms/"+args[0]+"/unmute", nil, &rule); err != nil {
			return err
		}
		fmt.Printf("rule %d unmuted\n", rule.ID)
		return nil
	},
}

func toggleRule(id, action string) error {
	client, err := newAPIClient()
	if err != nil {
		return err
	}

	var rule ruleInfo
	if err := client.post("/api/v1/alarms/"+id+"/"+action, nil, &rule); err != nil {
		return err
	}
	fmt.Printf("rule %d %sd\n", rule.ID, action)
	return nil
}

func init() {
	rulesMuteCmd.Flags().StringVar(&muteFor, "for", "", "mute duration, e.g. 2h")
	rulesMuteCmd.Flags().StringVar(&muteUntil, "until", "", "mute end time, RFC 3339")

	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesEnableCmd)
	rulesCmd.AddCommand(rulesDisableCmd)
	rulesCmd.AddCommand(rulesMuteCmd)
	rulesCmd.AddCommand(rulesUnmuteCmd)
	rootCmd.AddCommand(rulesCmd)
}
