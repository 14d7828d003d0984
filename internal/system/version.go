package system

import "fmt"

var Name = "aws-auth-operator"
var Version = "<unset>"
var Commit = "<unset>"
var Repository = "https://github.com/telekom/aws-auth-operator"

func PrettyInfo() string {
	return fmt.Sprintf(`
===========================================================================
Application: %s
Version %s
GOTO: %s/tree/%s
===========================================================================
`, Name, Version, Repository, Commit)
}
