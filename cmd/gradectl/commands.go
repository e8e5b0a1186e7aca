package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/alm9/grades-escolares-api/internal/firebase"
	"github.com/alm9/grades-escolares-api/internal/types"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func parseID(arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("invalid id %q: must be a non-negative integer", arg)
	}
	return id, nil
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every grade in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			all, err := a.engine.ListAll()
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), all)
		},
	}
}

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one grade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			grade, err := a.engine.GetByID(id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), grade)
		},
	}
}

func (a *app) totalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "total <student> <subject>",
		Short: "Sum a student's grades in a subject",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := a.engine.TotalFor(args[0], args[1])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"student": args[0],
				"subject": args[1],
				"total":   total,
			})
		},
	}
}

func (a *app) averageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "average <subject> <type>",
		Short: "Average the grades of a subject and type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			avg, err := a.engine.AverageFor(args[0], args[1])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"subject": args[0],
				"type":    args[1],
				"average": avg,
			})
		},
	}
}

func (a *app) topCmd() *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "top <subject> <type>",
		Short: "Rank the highest grades of a subject and type",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			top, err := a.engine.TopN(args[0], args[1], n)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), top)
		},
	}

	cmd.Flags().IntVar(&n, "n", 0, "Number of grades to return (default GRADES_TOP_DEFAULT)")
	return cmd
}

// gradeFlags binds the mutable grade fields. Only flags the user actually set
// end up in the partial grade.
type gradeFlags struct {
	student string
	subject string
	typ     string
	value   float64
}

func (f *gradeFlags) register(flags *pflag.FlagSet) {
	flags.StringVar(&f.student, "student", "", "Student name")
	flags.StringVar(&f.subject, "subject", "", "Subject name")
	flags.StringVar(&f.typ, "type", "", "Evaluation type")
	flags.Float64Var(&f.value, "value", 0, "Score")
}

func (f *gradeFlags) partial(flags *pflag.FlagSet) types.PartialGrade {
	var p types.PartialGrade
	if flags.Changed("student") {
		p.Student = &f.student
	}
	if flags.Changed("subject") {
		p.Subject = &f.subject
	}
	if flags.Changed("type") {
		p.Type = &f.typ
	}
	if flags.Changed("value") {
		p.Value = &f.value
	}
	return p
}

func (a *app) addCmd() *cobra.Command {
	var f gradeFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Insert a grade",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			grade, err := a.engine.Insert(f.partial(cmd.Flags()))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), grade)
		},
	}

	f.register(cmd.Flags())
	return cmd
}

func (a *app) updateCmd() *cobra.Command {
	var f gradeFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the given fields of a grade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p := f.partial(cmd.Flags())
			if p.Empty() {
				return fmt.Errorf("nothing to update: set at least one of --student, --subject, --type, --value")
			}
			grade, err := a.engine.Update(id, p)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), grade)
		},
	}

	f.register(cmd.Flags())
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a grade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			grade, err := a.engine.Delete(id)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), grade.Deleted())
		},
	}
}

func (a *app) cloudStorage(cmd *cobra.Command) (*firebase.CloudStorage, error) {
	fb := a.cfg.Firebase
	fbApp, err := firebase.NewApp(cmd.Context(), fb.CredentialsFile, fb.Bucket)
	if errors.Is(err, firebase.ErrNotConfigured) {
		return nil, fmt.Errorf("%w: set FIREBASE_CONFIG to a service account file", err)
	}
	if err != nil {
		return nil, err
	}
	return firebase.NewCloudStorage(cmd.Context(), fbApp, fb.Bucket, fb.BackupPrefix, a.logger.Named("backup"))
}

func (a *app) backupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Upload a snapshot of the grades file to Firebase Cloud Storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := a.cloudStorage(cmd)
			if err != nil {
				return err
			}
			snapshot, err := a.engine.Snapshot()
			if err != nil {
				return err
			}
			name, err := cs.UploadSnapshot(cmd.Context(), snapshot)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"object": name,
				"grades": len(snapshot.Grades),
			})
		},
	}
}

func (a *app) backupsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List uploaded snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cs, err := a.cloudStorage(cmd)
			if err != nil {
				return err
			}
			backups, err := cs.ListBackups(cmd.Context())
			if err != nil {
				return err
			}
			if backups == nil {
				backups = []firebase.Backup{}
			}
			return writeJSON(cmd.OutOrStdout(), backups)
		},
	}
}
