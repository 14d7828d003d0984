/*
Copyright © 2026 Deutsche Telekom AG.
*/
package cmd

import (
	"flag"
	"fmt"
	"os"
	"regexp"
	"strconv"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/rest"
	"k8s.io/klog/v2"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client/config"

	awsauthv1 "github.com/telekom/aws-auth-operator/api/awsauth/v1"
	"github.com/telekom/aws-auth-operator/internal/system"
)

// kubeContextEnv names the kubeconfig context used outside a cluster.
const kubeContextEnv = "KUBE_CTX"

var (
	setupLog    logr.Logger
	scheme      *runtime.Scheme
	verbosity   int
	probeAddr   string
	metricsAddr string
	namespace   string
	kubeContext string
)

// sensitivePattern matches flag names whose values must not be logged.
var sensitivePattern = regexp.MustCompile(`(?i)(token|secret|password|passphrase|key|auth|credential|private|cert|bearer|client[-_]?id)`)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "aws-auth-operator",
	Short: "Manage aws-auth role mappings through MapRole resources",
	Long: `aws-auth-operator keeps the mapRoles list of the aws-auth ConfigMap in
sync with MapRole custom resources. Every MapRole owns exactly one entry,
keyed by its role ARN. Entries written by other tools are left alone.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := flag.Set("v", strconv.Itoa(verbosity)); err != nil {
			return fmt.Errorf("unable to set log verbosity: %w", err)
		}
		ctrl.SetLogger(klog.NewKlogr())
		setupLog.Info("app info", "name", system.Name, "version", system.Version, "commit", system.Commit)
		setupLog.V(1).Info("flags", "go", redactSensitiveFlags(), "command", redactCommandFlags(cmd))
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	setupLog = ctrl.Log.WithName("setup")
	klog.InitFlags(nil)
	cobra.OnInitialize(initScheme)

	rootCmd.PersistentFlags().StringVar(&namespace, "namespace", os.Getenv("POD_NAMESPACE"), "operator namespace")
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", 2, "Log level (0-9)")
	rootCmd.PersistentFlags().StringVar(&probeAddr, "health-probe-bind-address", ":8081", "The address the probe endpoint binds to.")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-bind-address", ":8080",
		"The address the metric endpoint binds to. Use 0 to disable the metrics server.")
	rootCmd.PersistentFlags().StringVar(&kubeContext, "kube-context", os.Getenv(kubeContextEnv),
		"The kubeconfig context to use when not running in a cluster. Defaults to $"+kubeContextEnv+".")
}

func initScheme() {
	scheme = runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))

	utilruntime.Must(awsauthv1.AddToScheme(scheme))
	utilruntime.Must(apiextensionsv1.AddToScheme(scheme))
}

// restConfig prefers the in-cluster config and falls back to the kubeconfig,
// using --kube-context if set.
func restConfig() (*rest.Config, error) {
	if cfg, err := rest.InClusterConfig(); err == nil {
		return cfg, nil
	}
	cfg, err := config.GetConfigWithContext(kubeContext)
	if err != nil {
		return nil, fmt.Errorf("unable to load kubeconfig (context %q): %w", kubeContext, err)
	}
	return cfg, nil
}

// redactSensitiveFlags returns all Go flags with the values of sensitive
// ones replaced.
func redactSensitiveFlags() map[string]string {
	out := map[string]string{}
	flag.CommandLine.VisitAll(func(f *flag.Flag) {
		out[f.Name] = redact(f.Name, f.Value.String())
	})
	return out
}

// redactCommandFlags does the same for the flags of a cobra command.
func redactCommandFlags(cmd *cobra.Command) map[string]string {
	out := map[string]string{}
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		out[f.Name] = redact(f.Name, f.Value.String())
	})
	return out
}

func redact(name, value string) string {
	if sensitivePattern.MatchString(name) {
		return "[REDACTED]"
	}
	return value
}
