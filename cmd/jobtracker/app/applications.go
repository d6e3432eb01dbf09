package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/stacklok/jobtracker/internal/app"
	"github.com/stacklok/jobtracker/internal/applications"
	"github.com/stacklok/jobtracker/internal/lookup"
)

// applicationFlags are the editable fields shared by add and update.
type applicationFlags struct {
	company        string
	jobTitle       string
	stage          string
	contractType   string
	location       string
	notes          string
	description    string
	applied        string
	interview      string
	salary         string
	currency       string
	salaryType     string
	employmentType string
}

func (f *applicationFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.company, "company", "", "Company name")
	fs.StringVar(&f.jobTitle, "title", "", "Job title")
	fs.StringVar(&f.stage, "stage", "", "Pipeline stage (Wishlist, Applied, Interviewing, Offer, Rejected)")
	fs.StringVar(&f.contractType, "contract-type", "", "Contract type name (e.g. Full-time)")
	fs.StringVar(&f.location, "location", "", "Location of the position")
	fs.StringVar(&f.notes, "notes", "", "Free-form notes")
	fs.StringVar(&f.description, "description", "", "Job description")
	fs.StringVar(&f.applied, "applied-on", "", "Application date (YYYY-MM-DD)")
	fs.StringVar(&f.interview, "interview-on", "", "Interview date (YYYY-MM-DD or RFC 3339)")
	fs.StringVar(&f.salary, "salary", "", "Salary amount")
	fs.StringVar(&f.currency, "currency", "", "Salary currency")
	fs.StringVar(&f.salaryType, "salary-type", "", "Salary period (e.g. Yearly)")
	fs.StringVar(&f.employmentType, "employment-type", "", "Type of employment (e.g. Permanent)")
}

// financial returns the financial information given on the command line, or
// nil when no financial flag was set. current supplies unset fields.
func (f *applicationFlags) financial(fs *pflag.FlagSet, current *applications.FinancialInformation) *applications.FinancialInformation {
	changed := false
	for _, name := range []string{"salary", "currency", "salary-type", "employment-type"} {
		changed = changed || fs.Changed(name)
	}
	if !changed {
		return current
	}

	out := &applications.FinancialInformation{}
	if current != nil {
		*out = *current
	}
	if fs.Changed("salary") {
		out.Salary = json.Number(strings.TrimSpace(f.salary))
	}
	if fs.Changed("currency") {
		out.Currency = f.currency
	}
	if fs.Changed("salary-type") {
		out.SalaryType = f.salaryType
	}
	if fs.Changed("employment-type") {
		out.TypeOfEmployment = f.employmentType
	}
	return out
}

func parseDate(flag, value string) (*applications.Timestamp, error) {
	ts, err := applications.ParseTimestamp(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", flag, err)
	}
	return &ts, nil
}

// resolveStatus maps a stage name to the status id of the service.
func resolveStatus(ctx context.Context, resolver *lookup.Resolver, name string) (string, error) {
	stage, err := applications.ParseStage(name)
	if err != nil {
		return "", err
	}
	if err := resolver.EnsureLoaded(ctx); err != nil {
		return "", err
	}
	statusID, ok := resolver.StatusForStage(stage)
	if !ok {
		return "", fmt.Errorf("the service has no status for stage %s", stage)
	}
	return statusID, nil
}

// resolveContractType maps a contract type name to its id.
func resolveContractType(ctx context.Context, resolver *lookup.Resolver, name string) (string, error) {
	if err := resolver.EnsureLoaded(ctx); err != nil {
		return "", err
	}
	id, ok := resolver.ContractTypeByName(name)
	if !ok {
		known := make([]string, 0)
		for _, item := range resolver.ContractTypes() {
			known = append(known, item.Name)
		}
		return "", fmt.Errorf("unknown contract type %q (known: %s)", name, strings.Join(known, ", "))
	}
	return id, nil
}

func newAddCmd(opts *rootOptions) *cobra.Command {
	f := &applicationFlags{}
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a job application",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				payload := &applications.NewApplication{
					Company:              f.company,
					JobTitle:             f.jobTitle,
					Location:             f.location,
					Notes:                f.notes,
					JobDescription:       f.description,
					FinancialInformation: f.financial(cmd.Flags(), nil),
				}

				stage := f.stage
				if stage == "" {
					stage = applications.StageApplied.String()
				}
				var err error
				if payload.StatusID, err = resolveStatus(ctx, c.Lookup, stage); err != nil {
					return err
				}
				if f.contractType != "" {
					if payload.ContractTypeID, err = resolveContractType(ctx, c.Lookup, f.contractType); err != nil {
						return err
					}
				}
				if f.applied != "" {
					if payload.ApplicationDate, err = parseDate("applied-on", f.applied); err != nil {
						return err
					}
				}
				if f.interview != "" {
					if payload.InterviewDate, err = parseDate("interview-on", f.interview); err != nil {
						return err
					}
				}

				created, err := c.Engine.Create(ctx, payload)
				if err != nil {
					return err
				}
				printRecord(cmd.OutOrStdout(), "Created", created)
				return nil
			})
		},
	}
	f.register(cmd.Flags())
	for _, name := range []string{"company", "title"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	return cmd
}

func newUpdateCmd(opts *rootOptions) *cobra.Command {
	f := &applicationFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a job application",
		Long: `Update a job application. Fields not given on the command line keep their
current value; the complete application is sent to the service.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				if err := syncBoard(ctx, c); err != nil {
					return err
				}
				current, ok := c.Engine.Snapshot().Get(args[0])
				if !ok {
					return applications.NewNotFoundError(args[0])
				}
				record := current.Clone()

				fs := cmd.Flags()
				setIfChanged(fs, "company", &record.Company, f.company)
				setIfChanged(fs, "title", &record.JobTitle, f.jobTitle)
				setIfChanged(fs, "location", &record.Location, f.location)
				setIfChanged(fs, "notes", &record.Notes, f.notes)
				setIfChanged(fs, "description", &record.JobDescription, f.description)
				record.FinancialInformation = f.financial(fs, record.FinancialInformation)

				var err error
				if fs.Changed("stage") {
					if record.StatusID, err = resolveStatus(ctx, c.Lookup, f.stage); err != nil {
						return err
					}
				}
				if fs.Changed("contract-type") {
					if record.ContractTypeID, err = resolveContractType(ctx, c.Lookup, f.contractType); err != nil {
						return err
					}
					record.ContractType = f.contractType
				}
				if fs.Changed("applied-on") {
					if record.ApplicationDate, err = parseDate("applied-on", f.applied); err != nil {
						return err
					}
				}
				if fs.Changed("interview-on") {
					if record.InterviewDate, err = parseDate("interview-on", f.interview); err != nil {
						return err
					}
				}

				updated, err := c.Engine.UpdateFull(ctx, record)
				if err != nil {
					return err
				}
				printRecord(cmd.OutOrStdout(), "Updated", updated)
				return nil
			})
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func setIfChanged(fs *pflag.FlagSet, name string, field *string, value string) {
	if fs.Changed(name) {
		*field = value
	}
}

func newMoveCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <stage>",
		Short: "Move a job application to another stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				if err := syncBoard(ctx, c); err != nil {
					return err
				}
				statusID, err := resolveStatus(ctx, c.Lookup, args[1])
				if err != nil {
					return err
				}
				moved, err := c.Engine.ChangeStage(ctx, args[0], statusID)
				if err != nil {
					return err
				}
				printRecord(cmd.OutOrStdout(), "Moved", moved)
				return nil
			})
		},
	}
}

func newDeleteCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a job application",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withClient(cmd, func(ctx context.Context, c *app.Client) error {
				if err := syncBoard(ctx, c); err != nil {
					return err
				}
				if err := c.Engine.Delete(ctx, args[0]); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func printRecord(w io.Writer, verb string, r *applications.Record) {
	_, _ = fmt.Fprintf(w, "%s %s: %s at %s [%s]\n", verb, r.ID, r.JobTitle, r.Company, r.Stage)
}
