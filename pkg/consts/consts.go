// Package consts defines the annotation, label and finalizer names the controller reads and writes.
package consts

const (
	// OperatorName is the annotation/finalizer namespace prefix, carried over from the project this controller descends from.
	OperatorName = "robotlb"

	// LBNameAnnotation overrides the HCloud load balancer name; defaults to the Service name.
	LBNameAnnotation = OperatorName + "/balancer"
	// NodeSelectorAnnotation carries the label-filter expression for the static target resolver.
	NodeSelectorAnnotation = OperatorName + "/node-selector"
	// LBCheckIntervalAnnotation overrides the health-check interval in seconds.
	LBCheckIntervalAnnotation = OperatorName + "/lb-check-interval"
	// LBTimeoutAnnotation overrides the health-check timeout in seconds.
	LBTimeoutAnnotation = OperatorName + "/lb-timeout"
	// LBRetriesAnnotation overrides the health-check retry count.
	LBRetriesAnnotation = OperatorName + "/lb-retries"
	// LBProxyModeAnnotation enables PROXY protocol on every service of the LB.
	LBProxyModeAnnotation = OperatorName + "/lb-proxy-mode"
	// LBNetworkAnnotation overrides the HCloud private network to attach to.
	LBNetworkAnnotation = OperatorName + "/lb-network"
	// LBLocationAnnotation overrides the HCloud region.
	LBLocationAnnotation = OperatorName + "/lb-location"
	// LBAlgorithmAnnotation overrides the balancing algorithm.
	LBAlgorithmAnnotation = OperatorName + "/lb-algorithm"
	// LBBalancerTypeAnnotation overrides the HCloud LB SKU.
	LBBalancerTypeAnnotation = OperatorName + "/balancer-type"
	// LBPrivateIPAnnotation requests a fixed private IP when attaching to a network.
	LBPrivateIPAnnotation = OperatorName + "/lb-private-ip"

	// FinalizerName is the finalizer the controller adds to every Service it manages.
	FinalizerName = OperatorName + "/finalizer"
)
