package controllers_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/record"
	fakeclient "sigs.k8s.io/controller-runtime/pkg/client/fake"
	ctrl "sigs.k8s.io/controller-runtime/pkg/reconcile"

	"github.com/hcloud-lb/robotlb/controllers"
	"github.com/hcloud-lb/robotlb/pkg/config"
	"github.com/hcloud-lb/robotlb/pkg/consts"
	"github.com/hcloud-lb/robotlb/pkg/hcloudclient/fake"
)

func newScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	scheme := runtime.NewScheme()
	require.NoError(t, corev1.AddToScheme(scheme))
	return scheme
}

func defaultConfig() *config.OperatorConfig {
	return &config.OperatorConfig{
		HCloudToken:         "token",
		DynamicNodeSelector: true,
		DefaultLBRetries:    3,
		DefaultLBTimeout:    10,
		DefaultLBInterval:   15,
		DefaultLBLocation:   "hel1",
		DefaultLBType:       "lb11",
		DefaultLBAlgorithm:  "least-connections",
	}
}

func TestReconcileCreatesLoadBalancer(t *testing.T) {
	hc := fake.NewHCloudClientFactory().NewClient("token")
	hc.Close()
	defer hc.Close()

	scheme := newScheme(t)
	nodeA := &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: "nodeA"},
		Status: corev1.NodeStatus{Addresses: []corev1.NodeAddress{
			{Type: corev1.NodeExternalIP, Address: "1.2.3.4"},
		}},
	}
	podA := &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{Name: "web-a", Namespace: "n", Labels: map[string]string{"app": "web"}},
		Spec:       corev1.PodSpec{NodeName: "nodeA"},
	}
	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "svc1", Namespace: "n"},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeLoadBalancer,
			Selector: map[string]string{"app": "web"},
			Ports:    []corev1.ServicePort{{Port: 80, NodePort: 30080, Protocol: corev1.ProtocolTCP}},
		},
	}

	c := fakeclient.NewClientBuilder().WithScheme(scheme).WithStatusSubresource(&corev1.Service{}).WithObjects(nodeA, podA, svc).Build()
	r := &controllers.ServiceReconciler{
		Client:              c,
		Config:              defaultConfig(),
		HCloudClientFactory: fake.NewHCloudClientFactory(),
		Recorder:            record.NewFakeRecorder(10),
	}

	res, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "n", Name: "svc1"}})
	require.NoError(t, err)
	require.NotZero(t, res.RequeueAfter)

	var got corev1.Service
	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Namespace: "n", Name: "svc1"}, &got))
	require.Contains(t, got.Finalizers, consts.FinalizerName)
	require.NotEmpty(t, got.Status.LoadBalancer.Ingress)
}

func TestReconcileSkipsNonLoadBalancerService(t *testing.T) {
	scheme := newScheme(t)
	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{Name: "svc2", Namespace: "n"},
		Spec:       corev1.ServiceSpec{Type: corev1.ServiceTypeClusterIP},
	}
	c := fakeclient.NewClientBuilder().WithScheme(scheme).WithStatusSubresource(&corev1.Service{}).WithObjects(svc).Build()
	r := &controllers.ServiceReconciler{
		Client:              c,
		Config:              defaultConfig(),
		HCloudClientFactory: fake.NewHCloudClientFactory(),
		Recorder:            record.NewFakeRecorder(10),
	}

	res, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "n", Name: "svc2"}})
	require.NoError(t, err)
	require.Zero(t, res.RequeueAfter)

	var got corev1.Service
	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Namespace: "n", Name: "svc2"}, &got))
	require.Empty(t, got.Finalizers)
}

func TestReconcileCleansUpOnDeletion(t *testing.T) {
	hc := fake.NewHCloudClientFactory().NewClient("token")
	hc.Close()
	defer hc.Close()

	scheme := newScheme(t)
	now := metav1.Now()
	svc := &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name: "svc3", Namespace: "n",
			Finalizers:        []string{consts.FinalizerName},
			DeletionTimestamp: &now,
		},
		Spec: corev1.ServiceSpec{Type: corev1.ServiceTypeLoadBalancer},
	}
	c := fakeclient.NewClientBuilder().WithScheme(scheme).WithStatusSubresource(&corev1.Service{}).WithObjects(svc).Build()
	r := &controllers.ServiceReconciler{
		Client:              c,
		Config:              defaultConfig(),
		HCloudClientFactory: fake.NewHCloudClientFactory(),
		Recorder:            record.NewFakeRecorder(10),
	}

	res, err := r.Reconcile(context.Background(), ctrl.Request{NamespacedName: types.NamespacedName{Namespace: "n", Name: "svc3"}})
	require.NoError(t, err)
	require.Zero(t, res.RequeueAfter)

	var got corev1.Service
	err = c.Get(context.Background(), types.NamespacedName{Namespace: "n", Name: "svc3"}, &got)
	if err == nil {
		require.NotContains(t, got.Finalizers, consts.FinalizerName)
	}
}
