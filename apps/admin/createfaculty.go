package main

import (
	"github.com/trezcool/capstone/core/faculty"
)

// addFaculty creates a faculty (or admin) account.
func (cli *commandLine) addFaculty(employeeID, name, email, pwd, role string) error {
	data := faculty.NewFaculty{
		EmployeeID: employeeID,
		Name:       name,
		Email:      email,
		Password:   pwd,
		Role:       role,
	}
	if err := data.Validate(cli.facSvc); err != nil {
		return err
	}
	if _, err := cli.facSvc.Create(data); err != nil {
		return err
	}
	return nil
}
