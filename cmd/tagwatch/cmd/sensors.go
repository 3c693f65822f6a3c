package cmd

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type sensorInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	DataFormat  int    `json:"data_format"`
	LastSeen    string `json:"last_seen"`
}

type sensorStatus struct {
	SensorID  string   `json:"sensor_id"`
	Status    string   `json:"status"`
	Triggered []string `json:"triggered"`
}

var sensorsCmd = &cobra.Command{
	Use:   "sensors",
	Short: "Manage registered sensors",
}

var sensorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered sensors",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var sensors []sensorInfo
		if err := client.get("/api/v1/sensors", &sensors); err != nil {
			return err
		}

		if GetOutput() == "json" {
			printJSON(sensors)
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tFORMAT\tLAST SEEN")
		for _, s := range sensors {
			name := s.DisplayName
			if name == "" {
				name = s.Name
			}
			lastSeen := s.LastSeen
			if lastSeen == "" {
				lastSeen = "never"
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, name, s.DataFormat, lastSeen)
		}
		return w.Flush()
	},
}

var sensorsStatusCmd = &cobra.Command{
	Use:   "status <sensor-id>",
	Short: "Show the alarm status of a sensor",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var status sensorStatus
		if err := client.get("/api/v1/sensors/"+args[0]+"/status", &status); err != nil {
			return err
		}

		if GetOutput() == "json" {
			printJSON(status)
			return nil
		}

		fmt.Printf("%s: %s\n", status.SensorID, status.Status)
		if len(status.Triggered) > 0 {
			fmt.Printf("  triggered: %s\n", strings.Join(status.Triggered, ", "))
		}
		return nil
	},
}

func init() {
	sensorsCmd.AddCommand(sensorsListCmd)
	sensorsCmd.AddCommand(sensorsStatusCmd)
	rootCmd.AddCommand(sensorsCmd)
}
