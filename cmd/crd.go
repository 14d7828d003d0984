/*
Copyright © 2026 Deutsche Telekom AG.
*/
package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"

	awsauthv1 "github.com/telekom/aws-auth-operator/api/awsauth/v1"
)

// crdCmd prints the MapRole CRD so it can be applied with kubectl.
var crdCmd = &cobra.Command{
	Use:   "crd",
	Short: "Print the MapRole CustomResourceDefinition as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return writeCRD(cmd.OutOrStdout())
	},
}

func writeCRD(w io.Writer) error {
	out, err := yaml.Marshal(awsauthv1.CustomResourceDefinition())
	if err != nil {
		return fmt.Errorf("unable to render MapRole CRD: %w", err)
	}
	_, err = w.Write(out)
	return err
}

func init() {
	rootCmd.AddCommand(crdCmd)
}
