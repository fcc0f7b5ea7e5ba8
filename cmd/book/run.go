package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stylo/apiclient"
	"stylo/bookingflow"
	"stylo/models"
	"stylo/utils"

	"github.com/spf13/cobra"
)

type runOptions struct {
	*RootOptions
	ServiceID string
	StaffID   string
	Date      string
	Time      string
	Notes     string

	DocType         string
	DocNumber       string
	Phone           string
	FirstName       string
	LastNamePaterno string
	LastNameMaterno string
	Email           string
	Gender          string
	BirthDate       string
	Photo           string

	OTP string
}

func newRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &runOptions{RootOptions: rootOpts}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Book one slot end to end, asking for the WhatsApp code",
		Long: `Book one slot end to end. The code sent by WhatsApp is read from stdin
unless --otp is given or the backend echoes a debug code.
Type "r" at the prompt to request a new code.`,
		Example: `  book run --branch branch-miraflores --service svc-corte --date 2024-06-10 --time 15:00 \
    --doc-type dni --doc 12345678 --phone +51987654321`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBooking(cmd.Context(), opts, cmd)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.ServiceID, "service", "", "service id")
	f.StringVar(&opts.StaffID, "staff", "", "staff id (empty for first available)")
	f.StringVar(&opts.Date, "date", "", "date as YYYY-MM-DD")
	f.StringVar(&opts.Time, "time", "", "start time as HH:MM in branch time")
	f.StringVar(&opts.Notes, "notes", "", "notes for the appointment")
	f.StringVar(&opts.DocType, "doc-type", models.DocumentDNI, "document type: dni, pasaporte or ce")
	f.StringVar(&opts.DocNumber, "doc", "", "document number")
	f.StringVar(&opts.Phone, "phone", "", "WhatsApp phone number, e.g. +51987654321")
	f.StringVar(&opts.FirstName, "first-name", "", "first name (new clients)")
	f.StringVar(&opts.LastNamePaterno, "last-name-paterno", "", "paternal last name (new clients)")
	f.StringVar(&opts.LastNameMaterno, "last-name-materno", "", "maternal last name (new clients)")
	f.StringVar(&opts.Email, "email", "", "e-mail for the confirmation")
	f.StringVar(&opts.Gender, "gender", "", "M or F (new clients)")
	f.StringVar(&opts.BirthDate, "birth-date", "", "birth date as YYYY-MM-DD (new clients)")
	f.StringVar(&opts.Photo, "photo", "", "path of an optional client photo")
	f.StringVar(&opts.OTP, "otp", "", "verification code, skips the prompt")
	for _, name := range []string{"service", "date", "time", "doc"} {
		cmd.MarkFlagRequired(name)
	}
	return cmd
}

// pickSlot finds the slot starting at hhmm, in the offset the backend reported it.
func pickSlot(slots []models.AvailableSlot, hhmm string) (models.AvailableSlot, bool) {
	for _, s := range slots {
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, s.Datetime); err == nil {
				if t.Format("15:04") == hhmm {
					return s, true
				}
				break
			}
		}
	}
	return models.AvailableSlot{}, false
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func runBooking(ctx context.Context, opts *runOptions, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	flow := bookingflow.New(opts.client(), opts.BranchID, nil)
	defer flow.Leave()

	if err := flow.SelectService(opts.ServiceID); err != nil {
		return err
	}
	if err := flow.SelectStaff(optional(opts.StaffID)); err != nil {
		return err
	}
	slots, err := flow.LoadSlots(ctx, opts.Date)
	if err != nil {
		return err
	}
	slot, ok := pickSlot(slots, opts.Time)
	if !ok {
		return fmt.Errorf("no free slot at %s on %s", opts.Time, opts.Date)
	}
	if err := flow.SelectSlot(slot); err != nil {
		return err
	}
	if err := flow.SetNotes(opts.Notes); err != nil {
		return err
	}
	if err := flow.StartBooking(ctx); err != nil {
		if bookingflow.IsKind(err, bookingflow.Conflict) {
			return fmt.Errorf("%w (run `book slots` to pick another time)", err)
		}
		return err
	}
	summary := flow.Summary()
	fmt.Fprintf(out, "Holding %s with %s at %s, S/ %s\n", summary.ServiceName, summary.StaffName, summary.StartDatetime, summary.Price)

	if err := flow.LookupClient(ctx, opts.DocType, opts.DocNumber); err != nil {
		return err
	}
	found := flow.ClientFound()
	if found {
		fmt.Fprintf(out, "Welcome back, %s\n", flow.Draft().FirstName)
	} else if opts.DocType == models.DocumentDNI && opts.FirstName == "" {
		waitForEnrichment(flow, 3*time.Second)
	}
	if err := flow.EditDraft(func(d *bookingflow.ClientDraft) {
		setIf(&d.PhoneNumber, opts.Phone)
		setIf(&d.Email, opts.Email)
		if found {
			return
		}
		setIf(&d.FirstName, opts.FirstName)
		setIf(&d.LastNamePaterno, opts.LastNamePaterno)
		setIf(&d.LastNameMaterno, opts.LastNameMaterno)
		setIf(&d.Gender, strings.ToUpper(opts.Gender))
		setIf(&d.BirthDate, opts.BirthDate)
	}); err != nil {
		return err
	}
	if opts.Photo != "" {
		file, err := os.Open(opts.Photo)
		if err != nil {
			return fmt.Errorf("cannot open photo: %w", err)
		}
		defer file.Close()
		if err := flow.SetPhoto(&apiclient.Photo{Filename: filepath.Base(opts.Photo), Content: file}); err != nil {
			return err
		}
	}
	if err := flow.SendOTP(ctx); err != nil {
		return err
	}
	fmt.Fprintf(out, "Code sent by WhatsApp to %s\n", flow.Draft().PhoneNumber)

	if err := verifyLoop(ctx, flow, opts.OTP, cmd); err != nil {
		return err
	}
	conf := flow.Confirmation()
	fmt.Fprintf(out, "Confirmed %s: %s with %s at %s (%s, %s), S/ %s\n",
		conf.ID, conf.ServiceName, conf.StaffName, conf.StartDatetime, conf.BranchName, conf.BranchAddress, conf.Price)
	return nil
}

func waitForEnrichment(flow *bookingflow.Controller, max time.Duration) {
	deadline := time.Now().Add(max)
	for time.Now().Before(deadline) && flow.Draft().FirstName == "" {
		time.Sleep(100 * time.Millisecond)
	}
}

func verifyLoop(ctx context.Context, flow *bookingflow.Controller, code string, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	in := bufio.NewReader(cmd.InOrStdin())
	if code == "" {
		code = flow.DebugOTP()
	}
	for {
		if code == "" {
			fmt.Fprint(out, "Código (r para reenviar): ")
			line, err := in.ReadString('\n')
			if err != nil && (!errors.Is(err, io.EOF) || strings.TrimSpace(line) == "") {
				return fmt.Errorf("no code entered: %w", err)
			}
			line = strings.TrimSpace(line)
			if strings.EqualFold(line, "r") {
				if err := flow.ResendOTP(ctx); err != nil {
					return err
				}
				code = flow.DebugOTP()
				fmt.Fprintln(out, "A new code is on its way")
				continue
			}
			code = line
		}

		if _, err := flow.SetOTPCode(code); err != nil {
			return err
		}
		err := flow.VerifyOTP(ctx)
		if err == nil {
			return nil
		}
		var fe *bookingflow.Error
		if !errors.As(err, &fe) {
			return err
		}
		retry := fe.Kind == bookingflow.Validation ||
			(fe.Kind == bookingflow.Challenge && fe.Code == utils.CodeOTPInvalid)
		if !retry {
			return err
		}
		fmt.Fprintln(out, fe.Message)
		code = ""
	}
}
