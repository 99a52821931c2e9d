package loadbalancer_test

import (
	"context"
	"testing"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/stretchr/testify/mock"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/hcloud-lb/robotlb/pkg/config"
	"github.com/hcloud-lb/robotlb/pkg/consts"
	"github.com/hcloud-lb/robotlb/pkg/hcloudclient"
	"github.com/hcloud-lb/robotlb/pkg/hcloudclient/fake"
	"github.com/hcloud-lb/robotlb/pkg/hcloudclient/mocks"
	"github.com/hcloud-lb/robotlb/pkg/lberror"
	"github.com/hcloud-lb/robotlb/pkg/loadbalancer"
)

func TestLoadBalancer(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "loadbalancer suite")
}

func defaultConfig() *config.OperatorConfig {
	return &config.OperatorConfig{
		DefaultLBRetries:   3,
		DefaultLBTimeout:   10,
		DefaultLBInterval:  15,
		DefaultLBLocation:  "hel1",
		DefaultLBType:      "lb11",
		DefaultLBAlgorithm: loadbalancer.AlgorithmLeastConnections,
	}
}

var _ = Describe("FromService", func() {
	It("falls back to operator defaults when no annotations are set", func() {
		svc := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "svc1", Namespace: "n"}}
		d, err := loadbalancer.FromService(svc, defaultConfig())
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Name).To(Equal("svc1"))
		Expect(d.Location).To(Equal("hel1"))
		Expect(d.BalancerType).To(Equal("lb11"))
		Expect(d.Algorithm).To(Equal(loadbalancer.AlgorithmLeastConnections))
		Expect(d.Retries).To(Equal(int32(3)))
		Expect(d.ProxyMode).To(BeFalse())
	})

	It("prefers annotations over defaults", func() {
		svc := &corev1.Service{ObjectMeta: metav1.ObjectMeta{
			Name: "svc1", Namespace: "n",
			Annotations: map[string]string{
				consts.LBNameAnnotation:      "custom-name",
				consts.LBAlgorithmAnnotation: loadbalancer.AlgorithmRoundRobin,
				consts.LBRetriesAnnotation:   "7",
				consts.LBProxyModeAnnotation: "true",
			},
		}}
		d, err := loadbalancer.FromService(svc, defaultConfig())
		Expect(err).NotTo(HaveOccurred())
		Expect(d.Name).To(Equal("custom-name"))
		Expect(d.Algorithm).To(Equal(loadbalancer.AlgorithmRoundRobin))
		Expect(d.Retries).To(Equal(int32(7)))
		Expect(d.ProxyMode).To(BeTrue())
	})

	It("rejects an unparseable integer annotation", func() {
		svc := &corev1.Service{ObjectMeta: metav1.ObjectMeta{
			Name: "svc1", Namespace: "n",
			Annotations: map[string]string{consts.LBRetriesAnnotation: "not-a-number"},
		}}
		_, err := loadbalancer.FromService(svc, defaultConfig())
		Expect(err).To(HaveOccurred())
		Expect(lberror.KindOf(err)).To(Equal(lberror.KindInvalidInput))
	})

	It("rejects an unknown algorithm", func() {
		svc := &corev1.Service{ObjectMeta: metav1.ObjectMeta{
			Name: "svc1", Namespace: "n",
			Annotations: map[string]string{consts.LBAlgorithmAnnotation: "random"},
		}}
		_, err := loadbalancer.FromService(svc, defaultConfig())
		Expect(err).To(HaveOccurred())
		Expect(lberror.KindOf(err)).To(Equal(lberror.KindInvalidInput))
	})
})

var _ = Describe("Reconcile", func() {
	var client hcloudclient.Client

	BeforeEach(func() {
		client = fake.NewHCloudClientFactory().NewClient("token")
	})

	AfterEach(func() {
		client.Close()
	})

	It("creates a load balancer with one service and two targets", func() {
		d, err := loadbalancer.FromService(&corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "svc1", Namespace: "n"}}, defaultConfig())
		Expect(err).NotTo(HaveOccurred())
		d.AddService(80, 30080)
		d.Targets = []string{"1.2.3.4", "1.2.3.5"}

		observed, err := d.Reconcile(context.Background(), client)
		Expect(err).NotTo(HaveOccurred())
		Expect(observed.Name).To(Equal("svc1"))
		Expect(observed.PublicNet.IPv4.IP).NotTo(BeNil())

		lbs, err := client.ListLoadBalancers(context.Background(), hcloud.LoadBalancerListOpts{Name: "svc1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(lbs).To(HaveLen(1))
		Expect(lbs[0].Services).To(HaveLen(1))
		Expect(lbs[0].Targets).To(HaveLen(2))
	})

	It("is a no-op on the second reconcile", func() {
		svc := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "svc2", Namespace: "n"}}
		cfg := defaultConfig()

		d1, err := loadbalancer.FromService(svc, cfg)
		Expect(err).NotTo(HaveOccurred())
		d1.AddService(80, 30080)
		d1.Targets = []string{"1.2.3.4"}
		_, err = d1.Reconcile(context.Background(), client)
		Expect(err).NotTo(HaveOccurred())

		d2, err := loadbalancer.FromService(svc, cfg)
		Expect(err).NotTo(HaveOccurred())
		d2.AddService(80, 30080)
		d2.Targets = []string{"1.2.3.4"}
		_, err = d2.Reconcile(context.Background(), client)
		Expect(err).NotTo(HaveOccurred())

		lbs, err := client.ListLoadBalancers(context.Background(), hcloud.LoadBalancerListOpts{Name: "svc2"})
		Expect(err).NotTo(HaveOccurred())
		Expect(lbs[0].Services).To(HaveLen(1))
		Expect(lbs[0].Targets).To(HaveLen(1))
	})

	It("removes a target no longer desired and leaves the service alone", func() {
		svc := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "svc3", Namespace: "n"}}
		cfg := defaultConfig()

		d1, err := loadbalancer.FromService(svc, cfg)
		Expect(err).NotTo(HaveOccurred())
		d1.AddService(80, 30080)
		d1.Targets = []string{"1.2.3.4", "1.2.3.5"}
		_, err = d1.Reconcile(context.Background(), client)
		Expect(err).NotTo(HaveOccurred())

		d2, err := loadbalancer.FromService(svc, cfg)
		Expect(err).NotTo(HaveOccurred())
		d2.AddService(80, 30080)
		d2.Targets = []string{"1.2.3.4"}
		_, err = d2.Reconcile(context.Background(), client)
		Expect(err).NotTo(HaveOccurred())

		lbs, err := client.ListLoadBalancers(context.Background(), hcloud.LoadBalancerListOpts{Name: "svc3"})
		Expect(err).NotTo(HaveOccurred())
		Expect(lbs[0].Targets).To(HaveLen(1))
		Expect(lbs[0].Targets[0].IP.IP).To(Equal("1.2.3.4"))
		Expect(lbs[0].Services).To(HaveLen(1))
	})

	It("updates a service in place when its destination port changes", func() {
		svc := &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "svc3b", Namespace: "n"}}
		cfg := defaultConfig()

		d1, err := loadbalancer.FromService(svc, cfg)
		Expect(err).NotTo(HaveOccurred())
		d1.AddService(80, 30080)
		_, err = d1.Reconcile(context.Background(), client)
		Expect(err).NotTo(HaveOccurred())

		d2, err := loadbalancer.FromService(svc, cfg)
		Expect(err).NotTo(HaveOccurred())
		d2.AddService(80, 30090)
		_, err = d2.Reconcile(context.Background(), client)
		Expect(err).NotTo(HaveOccurred())

		lbs, err := client.ListLoadBalancers(context.Background(), hcloud.LoadBalancerListOpts{Name: "svc3b"})
		Expect(err).NotTo(HaveOccurred())
		Expect(lbs[0].Services).To(HaveLen(1))
		Expect(lbs[0].Services[0].ListenPort).To(Equal(80))
		Expect(lbs[0].Services[0].DestinationPort).To(Equal(30090))
	})

	It("changes the algorithm when the annotation changes", func() {
		svc := &corev1.Service{ObjectMeta: metav1.ObjectMeta{
			Name: "svc4", Namespace: "n",
			Annotations: map[string]string{consts.LBAlgorithmAnnotation: loadbalancer.AlgorithmLeastConnections},
		}}
		cfg := defaultConfig()
		d1, err := loadbalancer.FromService(svc, cfg)
		Expect(err).NotTo(HaveOccurred())
		_, err = d1.Reconcile(context.Background(), client)
		Expect(err).NotTo(HaveOccurred())

		svc.Annotations[consts.LBAlgorithmAnnotation] = loadbalancer.AlgorithmRoundRobin
		d2, err := loadbalancer.FromService(svc, cfg)
		Expect(err).NotTo(HaveOccurred())
		_, err = d2.Reconcile(context.Background(), client)
		Expect(err).NotTo(HaveOccurred())

		lbs, err := client.ListLoadBalancers(context.Background(), hcloud.LoadBalancerListOpts{Name: "svc4"})
		Expect(err).NotTo(HaveOccurred())
		Expect(lbs[0].Algorithm.Type).To(Equal(hcloud.LoadBalancerAlgorithmTypeRoundRobin))
	})

	It("switches network attachment, honoring a requested private IP", func() {
		netA := &hcloud.Network{ID: 1, Name: "net-a"}
		netB := &hcloud.Network{ID: 2, Name: "net-b"}
		fake.SeedNetwork(netA)
		fake.SeedNetwork(netB)

		svc := &corev1.Service{ObjectMeta: metav1.ObjectMeta{
			Name: "svc5", Namespace: "n",
			Annotations: map[string]string{consts.LBNetworkAnnotation: "net-b"},
		}}
		cfg := defaultConfig()
		d1, err := loadbalancer.FromService(svc, cfg)
		Expect(err).NotTo(HaveOccurred())
		_, err = d1.Reconcile(context.Background(), client)
		Expect(err).NotTo(HaveOccurred())

		svc.Annotations[consts.LBNetworkAnnotation] = "net-a"
		svc.Annotations[consts.LBPrivateIPAnnotation] = "10.0.5.7"
		d2, err := loadbalancer.FromService(svc, cfg)
		Expect(err).NotTo(HaveOccurred())
		_, err = d2.Reconcile(context.Background(), client)
		Expect(err).NotTo(HaveOccurred())

		lbs, err := client.ListLoadBalancers(context.Background(), hcloud.LoadBalancerListOpts{Name: "svc5"})
		Expect(err).NotTo(HaveOccurred())
		Expect(lbs[0].PrivateNet).To(HaveLen(1))
		Expect(lbs[0].PrivateNet[0].Network.ID).To(Equal(netA.ID))
		Expect(lbs[0].PrivateNet[0].IP.String()).To(Equal("10.0.5.7"))

		d3, err := loadbalancer.FromService(svc, cfg)
		Expect(err).NotTo(HaveOccurred())
		_, err = d3.Reconcile(context.Background(), client)
		Expect(err).NotTo(HaveOccurred())
		lbs, err = client.ListLoadBalancers(context.Background(), hcloud.LoadBalancerListOpts{Name: "svc5"})
		Expect(err).NotTo(HaveOccurred())
		Expect(lbs[0].PrivateNet).To(HaveLen(1))
	})

	It("skips a service with a duplicate load balancer name", func() {
		// The fake rejects duplicate names, so two same-named load balancers
		// are served from a mock instead.
		hc := mocks.NewClient(GinkgoT())
		hc.On("ListLoadBalancers", mock.Anything, hcloud.LoadBalancerListOpts{Name: "dup"}).Return([]*hcloud.LoadBalancer{
			{ID: 1, Name: "dup"},
			{ID: 2, Name: "dup"},
		}, nil)

		d := &loadbalancer.DesiredLoadBalancer{Name: "dup", Algorithm: loadbalancer.AlgorithmLeastConnections}
		_, err := d.Reconcile(context.Background(), hc)
		Expect(err).To(HaveOccurred())
		Expect(lberror.KindOf(err)).To(Equal(lberror.KindSkip))
	})
})

var _ = Describe("Reconcile interaction with HCloud", func() {
	It("issues an update call instead of delete-then-add for a mismatched service", func() {
		hc := mocks.NewClient(GinkgoT())

		observedLB := &hcloud.LoadBalancer{
			ID:               42,
			Name:             "svc-update",
			Algorithm:        hcloud.LoadBalancerAlgorithm{Type: hcloud.LoadBalancerAlgorithmTypeLeastConnections},
			LoadBalancerType: &hcloud.LoadBalancerType{Name: "lb11"},
			Services: []hcloud.LoadBalancerService{{
				ListenPort:      80,
				DestinationPort: 30080,
				Protocol:        hcloud.LoadBalancerServiceProtocolTCP,
				HealthCheck: hcloud.LoadBalancerServiceHealthCheck{
					Protocol: hcloud.LoadBalancerServiceProtocolTCP,
					Port:     30080,
					Interval: 15 * time.Second,
					Timeout:  10 * time.Second,
					Retries:  3,
				},
			}},
		}

		hc.On("ListLoadBalancers", mock.Anything, hcloud.LoadBalancerListOpts{Name: "svc-update"}).Return([]*hcloud.LoadBalancer{observedLB}, nil)
		hc.On("UpdateServiceOnLoadBalancer", mock.Anything, observedLB, 80, mock.Anything).Return(nil)

		d, err := loadbalancer.FromService(&corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "svc-update", Namespace: "n"}}, defaultConfig())
		Expect(err).NotTo(HaveOccurred())
		d.AddService(80, 30090)

		_, err = d.Reconcile(context.Background(), hc)
		Expect(err).NotTo(HaveOccurred())

		hc.AssertCalled(GinkgoT(), "UpdateServiceOnLoadBalancer", mock.Anything, observedLB, 80, mock.Anything)
		hc.AssertNotCalled(GinkgoT(), "DeleteServiceFromLoadBalancer", mock.Anything, mock.Anything, mock.Anything)
		hc.AssertNotCalled(GinkgoT(), "AddServiceToLoadBalancer", mock.Anything, mock.Anything, mock.Anything)
	})

	It("makes no mutating HCloud calls when the observed state already matches the desired state", func() {
		hc := mocks.NewClient(GinkgoT())

		observedLB := &hcloud.LoadBalancer{
			ID:               7,
			Name:             "svc-idempotent",
			Algorithm:        hcloud.LoadBalancerAlgorithm{Type: hcloud.LoadBalancerAlgorithmTypeLeastConnections},
			LoadBalancerType: &hcloud.LoadBalancerType{Name: "lb11"},
			Services: []hcloud.LoadBalancerService{{
				ListenPort:      80,
				DestinationPort: 30080,
				Protocol:        hcloud.LoadBalancerServiceProtocolTCP,
				HealthCheck: hcloud.LoadBalancerServiceHealthCheck{
					Protocol: hcloud.LoadBalancerServiceProtocolTCP,
					Port:     30080,
					Interval: 15 * time.Second,
					Timeout:  10 * time.Second,
					Retries:  3,
				},
			}},
			Targets: []hcloud.LoadBalancerTarget{{
				Type: hcloud.LoadBalancerTargetTypeIP,
				IP:   &hcloud.LoadBalancerTargetIP{IP: "1.2.3.4"},
			}},
		}

		hc.On("ListLoadBalancers", mock.Anything, hcloud.LoadBalancerListOpts{Name: "svc-idempotent"}).Return([]*hcloud.LoadBalancer{observedLB}, nil)

		d, err := loadbalancer.FromService(&corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "svc-idempotent", Namespace: "n"}}, defaultConfig())
		Expect(err).NotTo(HaveOccurred())
		d.AddService(80, 30080)
		d.Targets = []string{"1.2.3.4"}

		_, err = d.Reconcile(context.Background(), hc)
		Expect(err).NotTo(HaveOccurred())

		// Every mutating method is left unstubbed on purpose: a regression that
		// calls one would fail the test on the unmatched mock.Called().
		hc.AssertNotCalled(GinkgoT(), "CreateLoadBalancer", mock.Anything, mock.Anything)
		hc.AssertNotCalled(GinkgoT(), "ChangeLoadBalancerAlgorithm", mock.Anything, mock.Anything, mock.Anything)
		hc.AssertNotCalled(GinkgoT(), "ChangeLoadBalancerType", mock.Anything, mock.Anything, mock.Anything)
		hc.AssertNotCalled(GinkgoT(), "AttachLoadBalancerToNetwork", mock.Anything, mock.Anything, mock.Anything)
		hc.AssertNotCalled(GinkgoT(), "DetachLoadBalancerFromNetwork", mock.Anything, mock.Anything, mock.Anything)
		hc.AssertNotCalled(GinkgoT(), "AddServiceToLoadBalancer", mock.Anything, mock.Anything, mock.Anything)
		hc.AssertNotCalled(GinkgoT(), "DeleteServiceFromLoadBalancer", mock.Anything, mock.Anything, mock.Anything)
		hc.AssertNotCalled(GinkgoT(), "UpdateServiceOnLoadBalancer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		hc.AssertNotCalled(GinkgoT(), "AddIPTargetToLoadBalancer", mock.Anything, mock.Anything, mock.Anything)
		hc.AssertNotCalled(GinkgoT(), "DeleteIPTargetOfLoadBalancer", mock.Anything, mock.Anything, mock.Anything)
	})
})

var _ = Describe("Cleanup", func() {
	var client hcloudclient.Client

	BeforeEach(func() {
		client = fake.NewHCloudClientFactory().NewClient("token")
	})

	AfterEach(func() {
		client.Close()
	})

	It("deletes every service, target and the load balancer itself", func() {
		d, err := loadbalancer.FromService(&corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "svc6", Namespace: "n"}}, defaultConfig())
		Expect(err).NotTo(HaveOccurred())
		d.AddService(80, 30080)
		d.Targets = []string{"1.2.3.4"}
		_, err = d.Reconcile(context.Background(), client)
		Expect(err).NotTo(HaveOccurred())

		Expect(d.Cleanup(context.Background(), client)).To(Succeed())

		lbs, err := client.ListLoadBalancers(context.Background(), hcloud.LoadBalancerListOpts{Name: "svc6"})
		Expect(err).NotTo(HaveOccurred())
		Expect(lbs).To(BeEmpty())
	})

	It("is idempotent when no load balancer exists", func() {
		d := &loadbalancer.DesiredLoadBalancer{Name: "never-existed"}
		Expect(d.Cleanup(context.Background(), client)).To(Succeed())
	})
})
