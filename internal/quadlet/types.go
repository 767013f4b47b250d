// Package quadlet implements the pure compiler from a service/stack
// description to systemd Quadlet unit artifacts: the Quadlet Compiler (C3)
// of the design, built on the entry algebra (internal/entry) and section
// writer (internal/ini).
package quadlet

import "github.com/aryonoco/divban/internal/direrr"

// UnitKind identifies which of the three UnitDescriptor variants a value
// holds.
type UnitKind int

// The three UnitDescriptor variants.
const (
	KindContainer UnitKind = iota
	KindNetwork
	KindVolume
)

// UnitDescriptor is a closed sum of the three things the compiler knows how
// to turn into Quadlet unit files. Exactly one of Container, Network, or
// Volume is meaningful, selected by Kind.
type UnitDescriptor struct {
	Kind      UnitKind
	Container *Container
	Network   *Network
	Volume    *Volume
}

// Dependencies captures a container's relationship to its peers. Requires
// is a hard dependency; Wants is soft. After/Before are ordering-only. If
// After is nil, the compiler defaults it to Requires (open question in the
// design: callers that want strict parallelism with no ordering must set
// After to an explicit empty, non-nil slice).
type Dependencies struct {
	Requires []string
	Wants    []string
	After    []string
	Before   []string
}

// RecordPair is an ordered (key, value) pair, used wherever the spec calls
// for "record" semantics that must preserve author order (Go maps have no
// stable order).
type RecordPair struct {
	Key   string
	Value string
}

// Port describes one published port mapping.
type Port struct {
	HostIP    string // optional
	Host      int    // 0 means "container port only, no explicit host port"
	Container int
	Protocol  string // defaults to "tcp" when empty
}

// CreateLocalhostPort pins the host IP to 127.0.0.1, the database-service
// default called out in the design (avoid exposing DB ports beyond the
// host).
func CreateLocalhostPort(host, container int) Port {
	return Port{HostIP: "127.0.0.1", Host: host, Container: container}
}

// MountKind distinguishes bind mounts, named volumes, and other sources.
type MountKind int

// Mount kinds.
const (
	MountUnknown MountKind = iota
	MountBind
	MountNamedVolume
)

// VolumeMount describes one volume mount attached to a container (not to be
// confused with the Volume UnitDescriptor variant, which describes a
// `.volume` unit itself).
type VolumeMount struct {
	Source  string
	Target  string
	Options []string // e.g. "ro", "z", "Z"
}

// Kind classifies the mount's source per the spec's two predicates:
// isBindMount (source starts with "/") and isNamedVolume (source ends with
// ".volume").
func (v VolumeMount) Kind() MountKind {
	if len(v.Source) > 0 && v.Source[0] == '/' {
		return MountBind
	}
	if len(v.Source) > len(".volume") && v.Source[len(v.Source)-len(".volume"):] == ".volume" {
		return MountNamedVolume
	}
	return MountUnknown
}

// HasOption reports whether the mount's options already include opt.
func (v VolumeMount) HasOption(opt string) bool {
	for _, o := range v.Options {
		if o == opt {
			return true
		}
	}
	return false
}

// HealthCheck mirrors the spec's HealthCheck fields; interval/timeout/
// startPeriod are duration strings like "30s"/"1m", passed through verbatim
// (the compiler does not reinterpret them -- that is the caller's job via
// the memory-size-style parser family if ever needed).
type HealthCheck struct {
	Command       []string
	Interval      string
	Timeout       string
	StartPeriod   string
	Retries       int
	HasRetries    bool
}

// UserNamespaceMode is the closed sum keep-id | auto | host.
type UserNamespaceMode int

// User namespace modes.
const (
	UserNSKeepID UserNamespaceMode = iota
	UserNSAuto
	UserNSHost
)

// UserNamespace is the sum type keep-id{uid?,gid?} | auto{size?} | host.
type UserNamespace struct {
	Mode    UserNamespaceMode
	UID     int
	HasUID  bool
	GID     int
	HasGID  bool
	AutoSize int
	HasAutoSize bool
}

// Security groups the container's security posture.
type Security struct {
	NoNewPrivileges    bool
	HasNoNewPrivileges bool // false => compiler applies the stack-level default of true
	ReadOnly           bool
	SecurityLabels     []string
}

// Capabilities lists capability adds/drops.
type Capabilities struct {
	Add  []string
	Drop []string
}

// Resources groups resource constraints.
type Resources struct {
	Memory   string // memory-size string, e.g. "512m"
	ShmSize  string
	CPUs     string
	PidsLimit int
	HasPidsLimit bool
}

// Misc holds pass-through fields that don't deserve their own subsection.
type Misc struct {
	PodmanArgs []string
	Labels     []RecordPair
}

// NetworkAttachment describes how a container attaches to networking.
type NetworkAttachment struct {
	Mode             string // "pasta" | "slirp4netns" | "host" | "none" | "" (bridge/default)
	MapHostLoopback  string // non-empty enables pasta:--map-host-loopback=<addr>
	Networks         []string
	PublishPorts     []Port
}

// Secret describes one secret mount.
type Secret struct {
	Name   string
	Type   string // e.g. "mount", "env"
	Target string
	UID    int
	HasUID bool
	GID    int
	HasGID bool
	Mode   string
}

// ServiceConfig groups the [Service] section fields.
type ServiceConfig struct {
	Restart         string // e.g. "on-failure"
	HasRestart      bool
	TimeoutStartSec int
	HasTimeoutStartSec bool
}

// Container is the Container variant of UnitDescriptor.
type Container struct {
	Name            string
	Description     string
	Image           string
	ImageDigest     string // optional; compiled Image= becomes image@digest
	ImagePullPolicy string
	AutoUpdate      string
	Dependencies    Dependencies
	Network         NetworkAttachment
	Volumes         []VolumeMount
	Env             []RecordPair
	Secrets         []Secret
	UserNamespace   *UserNamespace
	HealthCheck     *HealthCheck
	Security        Security
	Capabilities    Capabilities
	Resources       Resources
	Misc            Misc
	Service         ServiceConfig
	WantedBy        string // defaults to "default.target"
}

// Network is the Network variant of UnitDescriptor.
type Network struct {
	Name        string
	Description string
	Internal    bool
	HasInternal bool
	Driver      string
	IPv6        bool
	HasIPv6     bool
	Subnet      string
	Gateway     string
	IPRange     string
	Options     []RecordPair
	DNS         []string
}

// Volume is the Volume variant of UnitDescriptor.
type Volume struct {
	Name        string
	Description string
	Driver      string
	Options     []RecordPair
	Labels      []RecordPair
}

// Stack is a named group of containers sharing networks/volumes and
// inter-container dependencies resolved by peer name within the stack.
type Stack struct {
	Name              string
	Description       string
	Network           *Network
	Networks          []Network
	Volumes           []Volume
	Containers        []StackContainer
	DefaultService    *ServiceConfig
	DefaultAutoUpdate string
}

// StackContainer projects Container with peer-relative Requires/Wants: the
// names there refer to other StackContainer.Name values in the same stack,
// and the compiler rewrites them to unit names (<peer>.service).
type StackContainer struct {
	Container
}

// GeneratedUnit is one compiled artifact.
type GeneratedUnit struct {
	Filename string
	Content  string
	Kind     UnitKind
}

// NewFieldError constructs the InvalidConfig taxonomy member for a
// compile-time failure tied to an offending field path.
func NewFieldError(field, msg string) *direrr.Error {
	return direrr.NewInvalidConfig(field, msg)
}
