// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package awsauth

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/events"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	awsauthv1 "github.com/telekom/aws-auth-operator/api/awsauth/v1"
	"github.com/telekom/aws-auth-operator/pkg/conditions"
	"github.com/telekom/aws-auth-operator/pkg/mapping"
	"github.com/telekom/aws-auth-operator/pkg/sharedrecord"
)

const nodeRoles = `- groups:
  - system:bootstrappers
  - system:nodes
  rolearn: arn:aws:iam::111122223333:role/eks-node
  username: system:node:{{EC2PrivateDNSName}}
`

var _ = Describe("MapRole lifecycle against the aws-auth ConfigMap", func() {
	var (
		ctx        context.Context
		k8sClient  client.Client
		recorder   *events.FakeRecorder
		reconciler *MapRoleReconciler
		awsAuthKey types.NamespacedName
	)

	readEntries := func() []mapping.Entry {
		cm := &corev1.ConfigMap{}
		Expect(k8sClient.Get(ctx, awsAuthKey, cm)).To(Succeed())
		entries, err := mapping.Decode(cm.Data[awsauthv1.DefaultAWSAuthKey])
		Expect(err).NotTo(HaveOccurred())
		return entries
	}

	roleARNs := func() []string {
		var arns []string
		for _, e := range readEntries() {
			arns = append(arns, e.RoleARN)
		}
		return arns
	}

	reconcileOnce := func(mr *awsauthv1.MapRole) ctrl.Result {
		result, err := reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(mr)})
		Expect(err).NotTo(HaveOccurred())
		return result
	}

	BeforeEach(func() {
		ctx = logf.IntoContext(context.Background(), logger)
		awsAuthKey = types.NamespacedName{
			Namespace: awsauthv1.DefaultAWSAuthNamespace,
			Name:      awsauthv1.DefaultAWSAuthName,
		}
		awsAuth := &corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{Namespace: awsAuthKey.Namespace, Name: awsAuthKey.Name},
			Data:       map[string]string{awsauthv1.DefaultAWSAuthKey: nodeRoles},
		}
		k8sClient = newTestClientBuilder(awsAuth).Build()
		recorder = events.NewFakeRecorder(100)
		store := sharedrecord.NewConfigMapStore(k8sClient, k8sClient, awsAuthKey, awsauthv1.DefaultAWSAuthKey)
		reconciler = NewMapRoleReconciler(k8sClient, store, recorder, DefaultRequeuePolicy())
	})

	It("applies, updates and removes a mapping without touching foreign entries", func() {
		By("creating a MapRole")
		mr := newMapRole("team-a", "admin", roleA, "alice", "system:masters")
		Expect(k8sClient.Create(ctx, mr)).To(Succeed())

		result := reconcileOnce(mr)
		Expect(result.RequeueAfter).To(Equal(DefaultHeartbeat))
		Expect(roleARNs()).To(Equal([]string{"arn:aws:iam::111122223333:role/eks-node", roleA}))

		current := &awsauthv1.MapRole{}
		Expect(k8sClient.Get(ctx, client.ObjectKeyFromObject(mr), current)).To(Succeed())
		Expect(controllerutil.ContainsFinalizer(current, awsauthv1.MapRoleFinalizer)).To(BeTrue())
		Expect(conditions.IsReady(current)).To(BeTrue())

		By("changing the username")
		current.Spec.Username = "alice-admin"
		Expect(k8sClient.Update(ctx, current)).To(Succeed())
		reconcileOnce(mr)

		entries := readEntries()
		Expect(entries).To(HaveLen(2))
		Expect(entries[1].RoleARN).To(Equal(roleA))
		Expect(entries[1].Username).To(Equal("alice-admin"))
		Expect(entries[1].Groups).To(Equal([]string{"system:masters"}))

		By("reconciling again without changes")
		cm := &corev1.ConfigMap{}
		Expect(k8sClient.Get(ctx, awsAuthKey, cm)).To(Succeed())
		versionBefore := cm.ResourceVersion
		result = reconcileOnce(mr)
		Expect(result.RequeueAfter).To(Equal(DefaultHeartbeat))
		Expect(k8sClient.Get(ctx, awsAuthKey, cm)).To(Succeed())
		Expect(cm.ResourceVersion).To(Equal(versionBefore))

		By("deleting the MapRole")
		Expect(k8sClient.Delete(ctx, current)).To(Succeed())
		result = reconcileOnce(mr)
		Expect(result).To(Equal(ctrl.Result{}))
		Expect(roleARNs()).To(Equal([]string{"arn:aws:iam::111122223333:role/eks-node"}))

		err := k8sClient.Get(ctx, client.ObjectKeyFromObject(mr), &awsauthv1.MapRole{})
		Expect(apierrors.IsNotFound(err)).To(BeTrue())
	})

	It("creates the mapRoles key when the ConfigMap has none", func() {
		cm := &corev1.ConfigMap{}
		Expect(k8sClient.Get(ctx, awsAuthKey, cm)).To(Succeed())
		cm.Data = map[string]string{"mapUsers": "[]\n"}
		Expect(k8sClient.Update(ctx, cm)).To(Succeed())

		mr := newMapRole("team-a", "admin", roleA, "alice")
		Expect(k8sClient.Create(ctx, mr)).To(Succeed())
		reconcileOnce(mr)

		Expect(k8sClient.Get(ctx, awsAuthKey, cm)).To(Succeed())
		Expect(cm.Data).To(HaveKeyWithValue("mapUsers", "[]\n"))
		Expect(roleARNs()).To(Equal([]string{roleA}))
	})

	It("restores a shared role ARN after one claimant is deleted", func() {
		first := newMapRole("team-a", "admin", roleA, "alice")
		second := newMapRole("team-b", "admin", roleA, "alice")
		Expect(k8sClient.Create(ctx, first)).To(Succeed())
		Expect(k8sClient.Create(ctx, second)).To(Succeed())
		reconcileOnce(first)
		reconcileOnce(second)
		Expect(roleARNs()).To(ContainElement(roleA))

		By("deleting one claimant")
		current := &awsauthv1.MapRole{}
		Expect(k8sClient.Get(ctx, client.ObjectKeyFromObject(first), current)).To(Succeed())
		Expect(k8sClient.Delete(ctx, current)).To(Succeed())
		reconcileOnce(first)
		Expect(roleARNs()).NotTo(ContainElement(roleA))

		By("reconciling the claimants of the deleted MapRole")
		requests := reconciler.mapRolesSharingRoleARN(ctx, first)
		Expect(requests).To(ConsistOf(ctrl.Request{NamespacedName: client.ObjectKeyFromObject(second)}))
		for _, req := range requests {
			_, err := reconciler.Reconcile(ctx, req)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(roleARNs()).To(ContainElement(roleA))
	})

	It("reports a missing ConfigMap as stalled and keeps the finalizer on delete", func() {
		Expect(k8sClient.Delete(ctx, &corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{Namespace: awsAuthKey.Namespace, Name: awsAuthKey.Name},
		})).To(Succeed())

		mr := newMapRole("team-a", "admin", roleA, "alice")
		Expect(k8sClient.Create(ctx, mr)).To(Succeed())
		_, err := reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(mr)})
		Expect(err).To(MatchError(sharedrecord.ErrRecordNotFound))

		current := &awsauthv1.MapRole{}
		Expect(k8sClient.Get(ctx, client.ObjectKeyFromObject(mr), current)).To(Succeed())
		Expect(conditions.IsStalled(current)).To(BeTrue())

		Expect(k8sClient.Delete(ctx, current)).To(Succeed())
		_, err = reconciler.Reconcile(ctx, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(mr)})
		Expect(err).To(HaveOccurred())
		Expect(k8sClient.Get(ctx, client.ObjectKeyFromObject(mr), current)).To(Succeed())
		Expect(controllerutil.ContainsFinalizer(current, awsauthv1.MapRoleFinalizer)).To(BeTrue())
	})
})
