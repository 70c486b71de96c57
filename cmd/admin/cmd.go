package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/term"

	"membership/internal/sanction"
	"membership/internal/student"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp       = errors.New("help provided")
	errNoDatabase = errors.New("migrate needs STORAGE_BACKEND=postgres")
)

// Recomputer rebuilds the sanction list.
type Recomputer interface {
	Recompute(ctx context.Context) (sanction.Result, error)
}

type commandLine struct {
	students   *student.Service
	recomputer Recomputer
	migrate    func(ctx context.Context) error
	log        zerolog.Logger
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate                                   - apply the database schema")
	fmt.Println("  adduser -id ID -email EMAIL -first NAME -last NAME [-gender G] [-student]")
	fmt.Println("                                            - create an account (admin unless -student)")
	fmt.Println("  resetpassword -id ID                      - reset an account's password")
	fmt.Println("  recompute                                 - rebuild the sanction list now")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserID := addUserCmd.String("id", "", "The account's id number.")
	addUserEmail := addUserCmd.String("email", "", "The account's email.")
	addUserFirst := addUserCmd.String("first", "", "First name.")
	addUserLast := addUserCmd.String("last", "", "Last name.")
	addUserGender := addUserCmd.String("gender", "N/A", "Gender.")
	addUserStudent := addUserCmd.Bool("student", false, "Create a student instead of an admin.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordID := resetPasswordCmd.String("id", "", "The account's id number. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if err := cli.migrate(ctx); err != nil {
			return err
		}
		cli.log.Info().Msg("schema up to date")
		return nil

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserID == "" || *addUserEmail == "" || *addUserFirst == "" || *addUserLast == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		role := student.RoleAdmin
		if *addUserStudent {
			role = student.RoleStudent
		}
		st, err := cli.students.Register(ctx, student.Registration{
			FirstName: *addUserFirst,
			LastName:  *addUserLast,
			Gender:    *addUserGender,
			IDNumber:  *addUserID,
			Email:     *addUserEmail,
			Password:  pwd,
			Role:      role,
		})
		if err != nil {
			return err
		}
		cli.log.Info().Str("id_number", st.IDNumber).Str("role", string(st.Role)).Msg("account created")
		return nil

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordID == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		if err := cli.students.ResetPassword(ctx, *resetPasswordID, pwd); err != nil {
			return err
		}
		cli.log.Info().Str("id_number", *resetPasswordID).Msg("password reset")
		return nil

	case "recompute":
		res, err := cli.recomputer.Recompute(ctx)
		if err != nil {
			return err
		}
		cli.log.Info().
			Int("students", res.Students).
			Int("events", res.Events).
			Int("sanctioned", res.Sanctioned).
			Int("cleared", res.Cleared).
			Msg("sanction list recomputed")
		return nil

	default:
		cli.printUsage()
		return errHelp
	}
}

func promptPassword() (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
