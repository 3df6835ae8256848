package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/hospitalzapata/wardsync/internal/admissions"
)

var admissionCmd = &cobra.Command{
	Use:   "admission",
	Short: "Manage patient admissions (online only)",
	Long: `Admission workflows move patients through states the server owns,
so they never queue: offline they fail immediately instead of risking
a stale replay.`,
}

var (
	admitPatientID string
	admitBedID     string
)

var admitCmd = &cobra.Command{
	Use:   "admit",
	Short: "Admit a patient to a bed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := apiClient.Admissions.Admit(context.Background(), admissions.AdmitRequest{
			PatientID: admitPatientID,
			BedID:     admitBedID,
		})
		if err != nil {
			return err
		}
		return reportResult(res, "admitted patient")
	},
}

var (
	bindAdmissionID string
	bindQRCode      string
)

var bindCmd = &cobra.Command{
	Use:   "bind",
	Short: "Bind an admission to a bed by QR code",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := apiClient.Admissions.Bind(context.Background(), admissions.BindRequest{
			AdmissionID: bindAdmissionID,
			QRCode:      bindQRCode,
		})
		if err != nil {
			return err
		}
		return reportResult(res, "bound admission")
	},
}

var (
	moveAdmissionID string
	moveBedID       string
)

var changeBedCmd = &cobra.Command{
	Use:   "change-bed",
	Short: "Move an active admission to another bed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := apiClient.Admissions.ChangeBed(context.Background(), admissions.ChangeBedRequest{
			AdmissionID: moveAdmissionID,
			BedID:       moveBedID,
		})
		if err != nil {
			return err
		}
		return reportResult(res, "moved admission")
	},
}

var dischargeCmd = &cobra.Command{
	Use:   "discharge <admission-id>",
	Short: "Discharge an admission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := apiClient.Admissions.Discharge(context.Background(), args[0])
		if err != nil {
			return err
		}
		return reportResult(res, "discharged admission")
	},
}

var (
	assignNurseID  string
	assignIslandID string
)

var assignCmd = &cobra.Command{
	Use:   "assign-nurse",
	Short: "Assign a nurse to an island",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := apiClient.Admissions.AssignNurses(context.Background(), []admissions.Assignment{
			{NurseID: assignNurseID, IslandID: assignIslandID},
		})
		if err != nil {
			return err
		}
		return reportResult(res, "assigned nurse")
	},
}

var infoCmd = &cobra.Command{
	Use:   "info <qr-code>",
	Short: "Look up the admission behind a bed QR code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := apiClient.Admissions.Info(context.Background(), args[0])
		if err != nil {
			return err
		}
		if res.OK && !jsonOutput {
			printJSON(res.Data)
			return nil
		}
		return reportResult(res, "looked up admission")
	},
}

var myBedsCmd = &cobra.Command{
	Use:   "my-beds",
	Short: "List the beds assigned to the authenticated nurse",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := apiClient.Admissions.MyAssignments(context.Background())
		if err != nil {
			return err
		}
		if res.OK && !jsonOutput {
			printJSON(res.Data)
			return nil
		}
		return reportResult(res, "listed assignments")
	},
}

func init() {
	admitCmd.Flags().StringVar(&admitPatientID, "patient", "", "Patient ID (required)")
	admitCmd.Flags().StringVar(&admitBedID, "bed", "", "Bed ID (required)")
	_ = admitCmd.MarkFlagRequired("patient")
	_ = admitCmd.MarkFlagRequired("bed")

	bindCmd.Flags().StringVar(&bindAdmissionID, "admission", "", "Admission ID (required)")
	bindCmd.Flags().StringVar(&bindQRCode, "qr", "", "Bed QR code (required)")
	_ = bindCmd.MarkFlagRequired("admission")
	_ = bindCmd.MarkFlagRequired("qr")

	changeBedCmd.Flags().StringVar(&moveAdmissionID, "admission", "", "Admission ID (required)")
	changeBedCmd.Flags().StringVar(&moveBedID, "bed", "", "Target bed ID (required)")
	_ = changeBedCmd.MarkFlagRequired("admission")
	_ = changeBedCmd.MarkFlagRequired("bed")

	assignCmd.Flags().StringVar(&assignNurseID, "nurse", "", "Nurse ID (required)")
	assignCmd.Flags().StringVar(&assignIslandID, "island", "", "Island ID (required)")
	_ = assignCmd.MarkFlagRequired("nurse")
	_ = assignCmd.MarkFlagRequired("island")

	admissionCmd.AddCommand(admitCmd, bindCmd, changeBedCmd, dischargeCmd, assignCmd, infoCmd)
	rootCmd.AddCommand(admissionCmd, myBedsCmd)
}
