package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/capstone/core/faculty"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db     *sql.DB
	facSvc *faculty.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS...] - run a goose migration command (up, down, status, ...)")
	fmt.Println("  createadmin -employee-id ID -name NAME -email EMAIL - create an admin account")
	fmt.Println("  createfaculty -employee-id ID -name NAME -email EMAIL - create a faculty account")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	createAdminCmd := flag.NewFlagSet("createadmin", flag.ExitOnError)
	createAdminEmpID := createAdminCmd.String("employee-id", "", "The admin's employee ID.")
	createAdminName := createAdminCmd.String("name", "", "The admin's full name.")
	createAdminEmail := createAdminCmd.String("email", "", "The admin's email. The password will be prompted next.")

	createFacultyCmd := flag.NewFlagSet("createfaculty", flag.ExitOnError)
	createFacultyEmpID := createFacultyCmd.String("employee-id", "", "The faculty's employee ID.")
	createFacultyName := createFacultyCmd.String("name", "", "The faculty's full name.")
	createFacultyEmail := createFacultyCmd.String("email", "", "The faculty's email. The password will be prompted next.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "createadmin":
		if err := createAdminCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createAdminEmpID == "" || *createAdminName == "" || *createAdminEmail == "" {
			createAdminCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(createAdminCmd)
		if err != nil {
			return err
		}
		return cli.addFaculty(*createAdminEmpID, *createAdminName, *createAdminEmail, pwd, faculty.RoleAdmin)
	case "createfaculty":
		if err := createFacultyCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *createFacultyEmpID == "" || *createFacultyName == "" || *createFacultyEmail == "" {
			createFacultyCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword(createFacultyCmd)
		if err != nil {
			return err
		}
		return cli.addFaculty(*createFacultyEmpID, *createFacultyName, *createFacultyEmail, pwd, faculty.RoleFaculty)
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword(cmd *flag.FlagSet) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		cmd.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}
