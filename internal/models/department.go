package models

import (
	"errors"
	"fmt"
	"strings"
)

// Department is a validated department code; each maps to its own document namespace.
type Department string

const (
	DepartmentAIML             Department = "AIML"
	DepartmentASH              Department = "ASH"
	DepartmentCivil            Department = "Civil"
	DepartmentComputer         Department = "Computer"
	DepartmentComputerRegional Department = "Computer_Regional"
	DepartmentENTC             Department = "ENTC"
	DepartmentIT               Department = "IT"
	DepartmentMechanical       Department = "Mechanical"
)

// Departments lists every known department.
var Departments = []Department{
	DepartmentAIML,
	DepartmentASH,
	DepartmentCivil,
	DepartmentComputer,
	DepartmentComputerRegional,
	DepartmentENTC,
	DepartmentIT,
	DepartmentMechanical,
}

// ErrUnknownDepartment is returned for department names outside Departments.
var ErrUnknownDepartment = errors.New("unknown department")

// ParseDepartment resolves a department name case-insensitively. The
// display form "Computer(Regional)" is accepted for Computer_Regional.
func ParseDepartment(raw string) (Department, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.NewReplacer("(", "_", ")", "", " ", "_").Replace(cleaned)
	for _, dept := range Departments {
		if strings.EqualFold(string(dept), cleaned) {
			return dept, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDepartment, raw)
}

// Namespace is the document store namespace holding the department's records.
func (d Department) Namespace() string {
	return "dept_" + strings.ToLower(string(d))
}

// Code is the short prefix used in generated identifiers, e.g. COMP or COMPR.
func (d Department) Code() string {
	if d == DepartmentComputerRegional {
		return "COMPR"
	}
	code := strings.ToUpper(string(d))
	if len(code) > 4 {
		code = code[:4]
	}
	return code
}
