package discovery

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	awsauthv1 "github.com/telekom/aws-auth-operator/api/awsauth/v1"
)

var mapRoleGVK = awsauthv1.GroupVersion.WithKind(awsauthv1.MapRoleKind)

func newCRDClient(t *testing.T, objs ...client.Object) client.Client {
	t.Helper()
	scheme := runtime.NewScheme()
	if err := apiextensionsv1.AddToScheme(scheme); err != nil {
		t.Fatalf("failed to add apiextensions to scheme: %v", err)
	}
	return fake.NewClientBuilder().WithScheme(scheme).WithObjects(objs...).Build()
}

func crdWithEstablished(name string, status apiextensionsv1.ConditionStatus) *apiextensionsv1.CustomResourceDefinition {
	return &apiextensionsv1.CustomResourceDefinition{
		ObjectMeta: metav1.ObjectMeta{Name: name},
		Status: apiextensionsv1.CustomResourceDefinitionStatus{
			Conditions: []apiextensionsv1.CustomResourceDefinitionCondition{
				{Type: apiextensionsv1.Established, Status: status},
			},
		},
	}
}

func TestCRDNameFromGVK(t *testing.T) {
	tests := []struct {
		name     string
		gvk      schema.GroupVersionKind
		expected string
	}{
		{
			name:     "MapRole",
			gvk:      mapRoleGVK,
			expected: "maproles.aws-auth.t-caas.telekom.com",
		},
		{
			name:     "Policy (ends with y)",
			gvk:      schema.GroupVersionKind{Group: "example.com", Version: "v1", Kind: "Policy"},
			expected: "policies.example.com",
		},
		{
			name:     "Address (ends with s)",
			gvk:      schema.GroupVersionKind{Group: "example.com", Version: "v1", Kind: "Address"},
			expected: "addresses.example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := crdNameFromGVK(tt.gvk); result != tt.expected {
				t.Errorf("crdNameFromGVK(%v) = %q, want %q", tt.gvk, result, tt.expected)
			}
		})
	}
}

func TestCRDNameMatchesGeneratedCRD(t *testing.T) {
	if got, want := crdNameFromGVK(mapRoleGVK), awsauthv1.CustomResourceDefinition().Name; got != want {
		t.Errorf("crdNameFromGVK() = %q, but the MapRole CRD is named %q", got, want)
	}
}

func TestPluralize(t *testing.T) {
	tests := []struct {
		kind     string
		expected string
	}{
		{"MapRole", "maproles"},
		{"Policy", "policies"},
		{"Address", "addresses"},
		{"Pod", "pods"},
		{"Ingress", "ingresses"},
		{"Gateway", "gateways"},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			if result := pluralize(tt.kind); result != tt.expected {
				t.Errorf("pluralize(%q) = %q, want %q", tt.kind, result, tt.expected)
			}
		})
	}
}

func TestIsEstablished(t *testing.T) {
	if !IsEstablished(crdWithEstablished("a", apiextensionsv1.ConditionTrue)) {
		t.Error("expected Established=True to be established")
	}
	if IsEstablished(crdWithEstablished("a", apiextensionsv1.ConditionFalse)) {
		t.Error("expected Established=False not to be established")
	}
	if IsEstablished(&apiextensionsv1.CustomResourceDefinition{}) {
		t.Error("expected a CRD without conditions not to be established")
	}
}

func TestCRDWaiter_WaitForCRDs_Success(t *testing.T) {
	fakeClient := newCRDClient(t, crdWithEstablished("maproles.aws-auth.t-caas.telekom.com", apiextensionsv1.ConditionTrue))
	waiter := NewCRDWaiter(fakeClient, zap.New(zap.UseDevMode(true)))

	if err := waiter.WaitForCRDs(context.Background(), []schema.GroupVersionKind{mapRoleGVK}, 5*time.Second); err != nil {
		t.Errorf("WaitForCRDs() error = %v, want nil", err)
	}
}

func TestCRDWaiter_WaitForCRDs_NotFound(t *testing.T) {
	waiter := NewCRDWaiter(newCRDClient(t), zap.New(zap.UseDevMode(true)))

	if err := waiter.WaitForCRDs(context.Background(), []schema.GroupVersionKind{mapRoleGVK}, 100*time.Millisecond); err == nil {
		t.Error("WaitForCRDs() expected error for missing CRD, got nil")
	}
}

func TestCRDWaiter_WaitForCRDs_NotEstablished(t *testing.T) {
	fakeClient := newCRDClient(t, crdWithEstablished("maproles.aws-auth.t-caas.telekom.com", apiextensionsv1.ConditionFalse))
	waiter := NewCRDWaiter(fakeClient, zap.New(zap.UseDevMode(true)))

	if err := waiter.WaitForCRDs(context.Background(), []schema.GroupVersionKind{mapRoleGVK}, 100*time.Millisecond); err == nil {
		t.Error("WaitForCRDs() expected error for non-established CRD, got nil")
	}
}

func TestCRDWaiter_WaitForCRDs_ContextCancelled(t *testing.T) {
	waiter := NewCRDWaiter(newCRDClient(t), logr.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := waiter.WaitForCRDs(ctx, []schema.GroupVersionKind{mapRoleGVK}, time.Minute); err == nil {
		t.Error("WaitForCRDs() expected error for cancelled context, got nil")
	}
}

func TestCRDWaiter_WaitForMultipleCRDs(t *testing.T) {
	other := schema.GroupVersionKind{Group: "example.com", Version: "v1", Kind: "Policy"}
	fakeClient := newCRDClient(t,
		crdWithEstablished("maproles.aws-auth.t-caas.telekom.com", apiextensionsv1.ConditionTrue),
		crdWithEstablished("policies.example.com", apiextensionsv1.ConditionTrue),
	)
	waiter := NewCRDWaiter(fakeClient, zap.New(zap.UseDevMode(true)))

	if err := waiter.WaitForCRDs(context.Background(), []schema.GroupVersionKind{mapRoleGVK, other}, 5*time.Second); err != nil {
		t.Errorf("WaitForCRDs() error = %v, want nil", err)
	}
}

func TestCRDWaiter_OneMissingFailsAll(t *testing.T) {
	other := schema.GroupVersionKind{Group: "example.com", Version: "v1", Kind: "Policy"}
	fakeClient := newCRDClient(t, crdWithEstablished("maproles.aws-auth.t-caas.telekom.com", apiextensionsv1.ConditionTrue))
	waiter := NewCRDWaiter(fakeClient, logr.Discard())

	if err := waiter.WaitForCRDs(context.Background(), []schema.GroupVersionKind{mapRoleGVK, other}, 200*time.Millisecond); err == nil {
		t.Error("WaitForCRDs() expected error when one CRD is missing, got nil")
	}
}
