//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/telekom/aws-auth-operator/test/utils"
)

const (
	defaultClusterName = "aws-auth-operator-e2e"
	defaultK8sVersion  = "v1.34.0"
	operatorBinary     = "bin/aws-auth-operator"
	testNamespace      = "aws-auth-e2e"

	nodeRoleARN  = "arn:aws:iam::111122223333:role/eks-node"
	adminRoleARN = "arn:aws:iam::111122223333:role/e2e-admin"
)

const awsAuthManifest = `apiVersion: v1
kind: ConfigMap
metadata:
  name: aws-auth
  namespace: kube-system
data:
  mapRoles: |
    - groups:
      - system:bootstrappers
      - system:nodes
      rolearn: ` + nodeRoleARN + `
      username: system:node:{{EC2PrivateDNSName}}
`

func mapRoleManifest(name, username string) string {
	return fmt.Sprintf(`apiVersion: aws-auth.t-caas.telekom.com/v1
kind: MapRole
metadata:
  name: %s
  namespace: %s
spec:
  rolearn: %s
  username: %s
  groups:
  - system:masters
`, name, testNamespace, adminRoleARN, username)
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func mapRoles() string {
	out, err := utils.GetResourceField("configmap", "aws-auth", "kube-system", "{.data.mapRoles}")
	Expect(err).NotTo(HaveOccurred())
	return out
}

var _ = Describe("MapRole", Ordered, Label("maprole"), func() {
	var (
		clusterName string
		operator    *exec.Cmd
	)

	BeforeAll(func() {
		clusterName = envOr("KIND_CLUSTER", defaultClusterName)

		By("creating the kind cluster")
		Expect(utils.CreateKindCluster(clusterName, envOr("K8S_VERSION", defaultK8sVersion))).To(Succeed())

		By("building the operator")
		_, err := utils.Run(exec.CommandContext(context.Background(), "go", "build", "-o", operatorBinary, "."))
		Expect(err).NotTo(HaveOccurred())

		By("seeding the aws-auth ConfigMap and the test namespace")
		Expect(utils.ApplyManifest(awsAuthManifest)).To(Succeed())
		_, err = utils.Run(exec.CommandContext(context.Background(), "kubectl", "create", "namespace", testNamespace))
		if err != nil {
			Expect(err.Error()).To(ContainSubstring("AlreadyExists"))
		}

		By("starting the operator against the cluster")
		operator = exec.Command(operatorBinary, "controller",
			"--kube-context", "kind-"+clusterName,
			"--install-crd",
			"--metrics-bind-address", "0",
			"--health-probe-bind-address", "0",
			"--heartbeat-interval", "30s",
		)
		Expect(utils.Start(operator)).To(Succeed())
		Expect(utils.WaitForResource("crd", "maproles.aws-auth.t-caas.telekom.com", "", 2*time.Minute)).To(Succeed())
	})

	AfterAll(func() {
		utils.StopProcess(operator, 30*time.Second)
		utils.RemoveFinalizersForAll("maproles")
		if utils.ShouldTeardown() {
			Expect(utils.DeleteKindCluster(clusterName)).To(Succeed())
		}
	})

	AfterEach(func() {
		if CurrentSpecReport().Failed() {
			utils.CollectEvents(testNamespace)
		}
	})

	It("adds the entry and keeps foreign entries", func() {
		Expect(utils.ApplyManifest(mapRoleManifest("admin", "e2e-admin"))).To(Succeed())

		Eventually(mapRoles, 2*time.Minute, 2*time.Second).Should(ContainSubstring(adminRoleARN))
		Expect(mapRoles()).To(ContainSubstring(nodeRoleARN))

		Eventually(func() (string, error) {
			return utils.GetResourceField("maprole", "admin", testNamespace,
				`{.status.conditions[?(@.type=="Ready")].status}`)
		}, time.Minute, 2*time.Second).Should(Equal("True"))

		finalizers, err := utils.GetResourceField("maprole", "admin", testNamespace, "{.metadata.finalizers}")
		Expect(err).NotTo(HaveOccurred())
		Expect(finalizers).To(ContainSubstring("aws-auth.t-caas.telekom.com/finalizer"))
	})

	It("follows username changes", func() {
		Expect(utils.ApplyManifest(mapRoleManifest("admin", "e2e-admin-renamed"))).To(Succeed())
		Eventually(mapRoles, time.Minute, 2*time.Second).Should(ContainSubstring("username: e2e-admin-renamed"))
		Expect(strings.Count(mapRoles(), adminRoleARN)).To(Equal(1))
	})

	It("restores the entry after an external edit drops it", func() {
		Expect(utils.ApplyManifest(awsAuthManifest)).To(Succeed())
		Expect(mapRoles()).NotTo(ContainSubstring(adminRoleARN))
		Eventually(mapRoles, 2*time.Minute, 2*time.Second).Should(ContainSubstring(adminRoleARN))
	})

	It("rejects changing the role ARN", func() {
		manifest := strings.Replace(mapRoleManifest("admin", "e2e-admin-renamed"), adminRoleARN,
			"arn:aws:iam::111122223333:role/other", 1)
		err := utils.ApplyManifest(manifest)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("rolearn is immutable"))
	})

	It("removes the entry before the MapRole goes away", func() {
		Expect(utils.DeleteManifest(mapRoleManifest("admin", "e2e-admin-renamed"))).To(Succeed())

		Eventually(func() bool {
			return utils.ResourceExists("maprole", "admin", testNamespace)
		}, time.Minute, 2*time.Second).Should(BeFalse())
		Expect(mapRoles()).NotTo(ContainSubstring(adminRoleARN))
		Expect(mapRoles()).To(ContainSubstring(nodeRoleARN))
	})
})
