package cmd

import (
	"github.com/coastcare/coastal-alerts/internal/ingest"
	"github.com/spf13/cobra"
)

func newIngestCommand(opts *options) *cobra.Command {
	var (
		sensorID string
		value    float64
		unit     string
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Store one reading and run anomaly detection and alerting on it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, log, err := opts.load()
			if err != nil {
				return err
			}
			a, err := newApp(settings, log)
			if err != nil {
				return err
			}
			defer a.close()

			reading, err := a.ingest.IngestReading(cmd.Context(), ingest.ReadingInput{
				SensorID: sensorID,
				Value:    &value,
				Unit:     unit,
			})
			if err != nil {
				return err
			}
			cmd.Printf("Stored reading %s\n", reading.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&sensorID, "sensor", "", "sensor ID")
	cmd.Flags().Float64Var(&value, "value", 0, "reading value")
	cmd.Flags().StringVar(&unit, "unit", "", "reading unit")
	_ = cmd.MarkFlagRequired("sensor")
	_ = cmd.MarkFlagRequired("value")
	_ = cmd.MarkFlagRequired("unit")
	return cmd
}
