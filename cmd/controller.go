/*
Copyright © 2026 Deutsche Telekom AG.
*/
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/config"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	awsauthv1 "github.com/telekom/aws-auth-operator/api/awsauth/v1"
	awsauthcontroller "github.com/telekom/aws-auth-operator/internal/controller/awsauth"
	"github.com/telekom/aws-auth-operator/internal/system"
	"github.com/telekom/aws-auth-operator/pkg/discovery"
	"github.com/telekom/aws-auth-operator/pkg/indexer"
	"github.com/telekom/aws-auth-operator/pkg/sharedrecord"
	"github.com/telekom/aws-auth-operator/pkg/tracing"
)

var (
	enableLeaderElection    bool
	mapRoleConcurrency      int
	awsAuthNamespace        string
	awsAuthName             string
	awsAuthKey              string
	heartbeatInterval       time.Duration
	noOpHeartbeatInterval   time.Duration
	conflictDelay           time.Duration
	transientDelay          time.Duration
	waitForCRDs             bool
	crdWaitTimeout          time.Duration
	installCRD              bool
	cacheSyncTimeout        time.Duration
	gracefulShutdownTimeout time.Duration
	tracingEnabled          bool
	tracingEndpoint         string
	tracingSamplingRate     float64
	tracingInsecure         bool
)

// controllerCmd represents the controller command
var controllerCmd = &cobra.Command{
	Use:   "controller",
	Short: "Run the MapRole controller",
	Long: `Run the MapRole controller. It adds the entry of every MapRole to the
aws-auth ConfigMap and removes it again before the MapRole is deleted.

Writes are compare-and-swap JSON patches, so several writers (including
other replicas and tools such as eksctl) can share the ConfigMap safely.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		setupLog.Info("starting controller")
		setupLog.Info("controller configuration",
			"enableLeaderElection", enableLeaderElection,
			"mapRoleConcurrency", mapRoleConcurrency,
			"awsAuth", types.NamespacedName{Namespace: awsAuthNamespace, Name: awsAuthName}.String(),
			"awsAuthKey", awsAuthKey,
			"heartbeat", heartbeatInterval,
			"noOpHeartbeat", noOpHeartbeatInterval,
			"conflictDelay", conflictDelay,
			"transientDelay", transientDelay,
			"waitForCRDs", waitForCRDs,
			"installCRD", installCRD,
			"tracingEnabled", tracingEnabled,
			"namespace", namespace,
		)

		if err := validateConcurrency(mapRoleConcurrency); err != nil {
			return err
		}
		policy := awsauthcontroller.RequeuePolicy{
			Heartbeat:      heartbeatInterval,
			NoOpHeartbeat:  noOpHeartbeatInterval,
			ConflictDelay:  conflictDelay,
			TransientDelay: transientDelay,
		}
		if err := policy.Validate(); err != nil {
			return fmt.Errorf("invalid requeue intervals: %w", err)
		}
		tracingConfig := tracing.Config{
			Enabled:      tracingEnabled,
			Endpoint:     tracingEndpoint,
			SamplingRate: tracingSamplingRate,
			Insecure:     tracingInsecure,
			Namespace:    namespace,
		}
		if err := tracingConfig.Validate(); err != nil {
			return fmt.Errorf("invalid tracing configuration: %w", err)
		}

		ctx := ctrl.SetupSignalHandler()

		cfg, err := restConfig()
		if err != nil {
			return err
		}

		if err := prepareCRD(ctx, cfg); err != nil {
			return err
		}

		tp, err := tracing.Setup(ctx, tracingConfig, system.Version)
		if err != nil {
			return fmt.Errorf("unable to set up tracing: %w", err)
		}
		defer func() {
			if err := tp.Shutdown(ctx); err != nil {
				setupLog.Error(err, "failed to shut down tracing")
			}
		}()

		mgr, err := ctrl.NewManager(cfg, ctrl.Options{
			Scheme: scheme,
			Metrics: metricsserver.Options{
				BindAddress: metricsAddr,
			},
			Controller: config.Controller{
				CacheSyncTimeout: cacheSyncTimeout,
			},
			LeaderElection:          enableLeaderElection,
			LeaderElectionID:        "aws-auth.t-caas.telekom.com",
			HealthProbeBindAddress:  probeAddr,
			GracefulShutdownTimeout: &gracefulShutdownTimeout,
		})
		if err != nil {
			return fmt.Errorf("unable to start manager: %w", err)
		}

		if err := indexer.SetupIndexes(ctx, mgr); err != nil {
			return fmt.Errorf("unable to setup field indexes: %w", err)
		}
		setupLog.Info("field indexes configured for cached client")

		// aws-auth is read past the cache: every pass needs the latest
		// version, and caching it would mean watching all ConfigMaps.
		store := sharedrecord.NewConfigMapStore(
			mgr.GetAPIReader(),
			mgr.GetClient(),
			types.NamespacedName{Namespace: awsAuthNamespace, Name: awsAuthName},
			awsAuthKey,
		)

		mapRoleController := awsauthcontroller.NewMapRoleReconciler(
			mgr.GetClient(),
			store,
			mgr.GetEventRecorder("MapRoleReconciler"),
			policy,
			awsauthcontroller.WithTracer(tp.Tracer()),
		)
		if err := mapRoleController.SetupWithManager(mgr, mapRoleConcurrency); err != nil {
			return fmt.Errorf("unable to setup controller MapRole with manager: %w", err)
		}

		if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
			return fmt.Errorf("unable to set up health check: %w", err)
		}
		if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
			return fmt.Errorf("unable to set up ready check: %w", err)
		}

		setupLog.Info("starting manager")
		if err := mgr.Start(ctx); err != nil {
			return fmt.Errorf("problem running manager: %w", err)
		}
		return nil
	},
}

// prepareCRD installs the MapRole CRD if asked to and waits for it to be
// established. It uses a direct client because the manager's cache is not
// running yet.
func prepareCRD(ctx context.Context, cfg *rest.Config) error {
	if !installCRD && !waitForCRDs {
		return nil
	}
	c, err := client.New(cfg, client.Options{Scheme: scheme})
	if err != nil {
		return fmt.Errorf("unable to create client: %w", err)
	}

	if installCRD {
		if err := discovery.EnsureCRD(ctx, c, awsauthv1.CustomResourceDefinition(), setupLog); err != nil {
			return fmt.Errorf("unable to install MapRole CRD: %w", err)
		}
	}

	if waitForCRDs {
		gvks := []schema.GroupVersionKind{awsauthv1.GroupVersion.WithKind(awsauthv1.MapRoleKind)}
		if err := discovery.NewCRDWaiter(c, setupLog).WaitForCRDs(ctx, gvks, crdWaitTimeout); err != nil {
			return fmt.Errorf("MapRole CRD is not available: %w", err)
		}
	}
	return nil
}

// validateConcurrency rejects worker counts the controller cannot run with.
func validateConcurrency(mapRoles int) error {
	if mapRoles < 1 {
		return fmt.Errorf("--maprole-concurrency must be at least 1, got %d", mapRoles)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(controllerCmd)

	flags := controllerCmd.Flags()
	flags.BoolVar(&enableLeaderElection, "leader-elect", false, "Enable leader election for controller manager. "+"Enabling this will ensure there is only one active controller manager.")
	flags.IntVar(&mapRoleConcurrency, "maprole-concurrency", 5, "Number of concurrent workers for the MapRole reconciler.")

	flags.StringVar(&awsAuthNamespace, "aws-auth-namespace", awsauthv1.DefaultAWSAuthNamespace, "Namespace of the aws-auth ConfigMap.")
	flags.StringVar(&awsAuthName, "aws-auth-name", awsauthv1.DefaultAWSAuthName, "Name of the aws-auth ConfigMap.")
	flags.StringVar(&awsAuthKey, "aws-auth-key", awsauthv1.DefaultAWSAuthKey, "Data key of the role mappings in the aws-auth ConfigMap.")

	flags.DurationVar(&heartbeatInterval, "heartbeat-interval", awsauthcontroller.DefaultHeartbeat,
		"Interval after which a MapRole is checked for drift once its entry was written.")
	flags.DurationVar(&noOpHeartbeatInterval, "noop-heartbeat-interval", awsauthcontroller.DefaultHeartbeat,
		"Interval after which a MapRole is checked for drift when its entry was already correct.")
	flags.DurationVar(&conflictDelay, "conflict-delay", awsauthcontroller.DefaultConflictDelay,
		"Base delay before retrying after a concurrent write to aws-auth. Jittered up to twice the value.")
	flags.DurationVar(&transientDelay, "transient-delay", awsauthcontroller.DefaultTransientDelay,
		"Delay before retrying after the API server was unavailable or throttling.")

	flags.BoolVar(&waitForCRDs, "wait-for-crds", true, "Wait for the MapRole CRD to be established before starting the manager.")
	flags.DurationVar(&crdWaitTimeout, "crd-wait-timeout", 2*time.Minute, "Maximum time to wait for the MapRole CRD.")
	flags.BoolVar(&installCRD, "install-crd", false, "Create or update the MapRole CRD on start.")
	flags.DurationVar(&cacheSyncTimeout, "cache-sync-timeout", 2*time.Minute, "Maximum time to wait for the informer caches to sync.")
	flags.DurationVar(&gracefulShutdownTimeout, "graceful-shutdown-timeout", 30*time.Second, "Maximum time to wait for runnables to stop on shutdown.")

	flags.BoolVar(&tracingEnabled, "tracing-enabled", false, "Export OpenTelemetry traces.")
	flags.StringVar(&tracingEndpoint, "tracing-endpoint", "", "OTLP gRPC collector endpoint, e.g. otel-collector:4317.")
	flags.Float64Var(&tracingSamplingRate, "tracing-sampling-rate", 1.0, "Ratio of traces to sample, between 0.0 and 1.0.")
	flags.BoolVar(&tracingInsecure, "tracing-insecure", false, "Disable TLS for the OTLP exporter.")
}
