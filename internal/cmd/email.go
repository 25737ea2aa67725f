package cmd

import (
	"fmt"
	"time"

	"github.com/coastcare/coastal-alerts/internal/alerting"
	"github.com/coastcare/coastal-alerts/internal/conf"
	"github.com/coastcare/coastal-alerts/internal/email"
	"github.com/coastcare/coastal-alerts/internal/errors"
	"github.com/spf13/cobra"
)

var errEmailNotConfigured = errors.New("email service is not configured")

func newEmailCommand(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "email",
		Short: "Inspect and test SMTP delivery.",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Print whether SMTP is configured and reachable.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, _, err := opts.mailer()
			if err != nil {
				return err
			}
			s := svc.Status()
			if s.Configured {
				s.Connected = svc.TestConnection(cmd.Context())
			}
			cmd.Printf("configured: %t\nconnected:  %t\n", s.Configured, s.Connected)
			return nil
		},
	}

	test := &cobra.Command{
		Use:   "test <recipient>",
		Short: "Send the sample alert email to a recipient.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, settings, err := opts.mailer()
			if err != nil {
				return err
			}
			if !svc.Status().Configured {
				return errEmailNotConfigured
			}
			data := email.SampleAlertData(alerting.FormatTimestamp(time.Now(), settings.Location()))
			if !svc.SendAlertEmail(cmd.Context(), args[0], data) {
				return fmt.Errorf("failed to send test email to %s", args[0])
			}
			cmd.Printf("Test email sent to %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(status, test)
	return cmd
}

func (o *options) mailer() (*email.Service, *conf.Settings, error) {
	settings, log, err := o.load()
	if err != nil {
		return nil, nil, err
	}
	svc, err := email.NewService(email.ConfigFromSettings(&settings.Email), nil, log)
	return svc, settings, err
}
