package quadlet

import (
	"github.com/aryonoco/divban/internal/entry"
	"github.com/aryonoco/divban/internal/ini"
)

// CompileOptions carries the host facts the otherwise-pure compiler needs in
// order to decide SELinux relabeling. Everything else about compile is a
// total function of the descriptor alone.
type CompileOptions struct {
	SELinuxEnforcing bool
}

// Compile is the pure function from a UnitDescriptor to its generated unit
// file artifacts. Containers produce exactly one GeneratedUnit ([Unit]
// [Container][Service][Install]); networks and volumes produce exactly one
// each ([Unit]?[Network|Volume]).
func Compile(desc UnitDescriptor, opts CompileOptions) ([]GeneratedUnit, error) {
	switch desc.Kind {
	case KindContainer:
		if desc.Container == nil {
			return nil, NewFieldError("container", "nil container descriptor")
		}
		u, err := compileContainer(*desc.Container, opts)
		if err != nil {
			return nil, err
		}
		return []GeneratedUnit{u}, nil
	case KindNetwork:
		if desc.Network == nil {
			return nil, NewFieldError("network", "nil network descriptor")
		}
		u, err := compileNetwork(*desc.Network)
		if err != nil {
			return nil, err
		}
		return []GeneratedUnit{u}, nil
	case KindVolume:
		if desc.Volume == nil {
			return nil, NewFieldError("volume", "nil volume descriptor")
		}
		u, err := compileVolume(*desc.Volume)
		if err != nil {
			return nil, err
		}
		return []GeneratedUnit{u}, nil
	default:
		return nil, NewFieldError("kind", "unknown unit kind")
	}
}

// CompileStack validates and compiles every unit in a stack, rewriting each
// container's peer-relative Requires/Wants/After/Before names to `.service`
// unit references after confirming every Requires/Wants peer actually exists
// in the stack. After/Before names are rewritten but not checked.
func CompileStack(stack Stack, opts CompileOptions) ([]GeneratedUnit, error) {
	names := make(map[string]bool, len(stack.Containers))
	for _, c := range stack.Containers {
		names[c.Name] = true
	}

	var out []GeneratedUnit

	if stack.Network != nil {
		u, err := compileNetwork(*stack.Network)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	for _, n := range stack.Networks {
		u, err := compileNetwork(n)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	for _, v := range stack.Volumes {
		u, err := compileVolume(v)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}

	for _, sc := range stack.Containers {
		c := sc.Container
		for _, peer := range c.Dependencies.Requires {
			if !names[peer] {
				return nil, NewFieldError("stack.containers["+c.Name+"].requires", "unknown peer: "+peer)
			}
		}
		for _, peer := range c.Dependencies.Wants {
			if !names[peer] {
				return nil, NewFieldError("stack.containers["+c.Name+"].wants", "unknown peer: "+peer)
			}
		}
		if c.Service.Restart == "" && !c.Service.HasRestart && stack.DefaultService != nil {
			c.Service = *stack.DefaultService
		}
		if c.AutoUpdate == "" && stack.DefaultAutoUpdate != "" {
			c.AutoUpdate = stack.DefaultAutoUpdate
		}
		u, err := compileContainer(c, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}

	return out, nil
}

func compileContainer(c Container, opts CompileOptions) (GeneratedUnit, error) {
	if c.Name == "" {
		return GeneratedUnit{}, NewFieldError("container.name", "empty container name")
	}
	if c.Image == "" {
		return GeneratedUnit{}, NewFieldError("container.image", "empty image")
	}

	after := c.Dependencies.After
	if after == nil {
		after = c.Dependencies.Requires
	}

	unitEntries := entry.Concat(
		entry.FromString("Description", c.Description),
		entry.FromArray("Requires", rewriteUnitNames(c.Dependencies.Requires)),
		entry.FromArray("Wants", rewriteUnitNames(c.Dependencies.Wants)),
		entry.FromArray("After", rewriteUnitNames(after)),
		entry.FromArray("Before", rewriteUnitNames(c.Dependencies.Before)),
	)

	var memoryEntries entry.Entries
	if c.Resources.Memory != "" {
		canon, err := ParseMemorySize(c.Resources.Memory)
		if err != nil {
			return GeneratedUnit{}, err
		}
		memoryEntries = entry.FromString("Memory", canon)
	}

	volumeStrings := make([]string, len(c.Volumes))
	for i, v := range c.Volumes {
		volumeStrings[i] = FormatVolumeMount(v, opts.SELinuxEnforcing)
	}

	portStrings := make([]string, len(c.Network.PublishPorts))
	for i, p := range c.Network.PublishPorts {
		portStrings[i] = FormatPort(p)
	}

	var healthEntries entry.Entries
	if c.HealthCheck != nil {
		hc := *c.HealthCheck
		healthEntries = entry.Concat(
			entry.FromArray("HealthCmd", hc.Command),
			entry.FromString("HealthInterval", hc.Interval),
			entry.FromString("HealthTimeout", hc.Timeout),
			entry.FromString("HealthStartPeriod", hc.StartPeriod),
			entry.FromValue("HealthRetries", hc.Retries, hc.HasRetries, entry.Int),
		)
	}

	var userNSEntries entry.Entries
	if c.UserNamespace != nil {
		userNSEntries = entry.FromString("UserNS", FormatUserNamespace(*c.UserNamespace))
	}

	secretStrings := make([]string, len(c.Secrets))
	for i, s := range c.Secrets {
		secretStrings[i] = formatSecret(s)
	}

	noNewPrivileges := c.Security.NoNewPrivileges
	if !c.Security.HasNoNewPrivileges {
		noNewPrivileges = true
	}

	containerEntries := entry.Concat(
		entry.FromString("Image", ImageValue(c.Image, c.ImageDigest)),
		entry.FromString("ContainerName", c.Name),
		entry.FromString("PullPolicy", c.ImagePullPolicy),
		entry.FromString("AutoUpdate", c.AutoUpdate),
		entry.FromString("Network", FormatNetworkMode(c.Network)),
		entry.FromArray("Network", c.Network.Networks),
		entry.FromArray("PublishPort", portStrings),
		entry.FromArray("Volume", volumeStrings),
		entry.FromRecord("Environment", toRecordEntries(c.Env), nil),
		entry.FromArray("Secret", secretStrings),
		userNSEntries,
		healthEntries,
		entry.FromValue("NoNewPrivileges", noNewPrivileges, true, entry.Bool),
		entry.FromBool("ReadOnly", c.Security.ReadOnly),
		entry.FromArray("SecurityLabel", c.Security.SecurityLabels),
		entry.FromArray("AddCapability", c.Capabilities.Add),
		entry.FromArray("DropCapability", c.Capabilities.Drop),
		memoryEntries,
		entry.FromString("ShmSize", c.Resources.ShmSize),
		entry.FromString("PodmanArgs", joinArgs(c.Misc.PodmanArgs)),
		entry.FromRecord("Label", toRecordEntries(c.Misc.Labels), nil),
	)

	serviceEntries := entry.Concat(
		entry.FromString("Restart", c.Service.Restart),
		entry.FromValue("TimeoutStartSec", c.Service.TimeoutStartSec, c.Service.HasTimeoutStartSec, entry.Int),
	)

	wantedBy := c.WantedBy
	if wantedBy == "" {
		wantedBy = "default.target"
	}
	installEntries := entry.FromString("WantedBy", wantedBy)

	content := ini.Render([]ini.Section{
		{Name: "Unit", Entries: unitEntries},
		{Name: "Container", Entries: containerEntries},
		{Name: "Service", Entries: serviceEntries},
		{Name: "Install", Entries: installEntries},
	})

	return GeneratedUnit{Filename: c.Name + ".container", Content: content, Kind: KindContainer}, nil
}

func compileNetwork(n Network) (GeneratedUnit, error) {
	if n.Name == "" {
		return GeneratedUnit{}, NewFieldError("network.name", "empty network name")
	}

	unitEntries := entry.FromString("Description", n.Description)

	networkEntries := entry.Concat(
		entry.FromValue("Internal", n.Internal, n.HasInternal, entry.Bool),
		entry.FromString("Driver", n.Driver),
		entry.FromValue("IPv6", n.IPv6, n.HasIPv6, entry.Bool),
		entry.FromString("Subnet", n.Subnet),
		entry.FromString("Gateway", n.Gateway),
		entry.FromString("IPRange", n.IPRange),
		entry.FromRecord("Options", toRecordEntries(n.Options), nil),
		entry.FromArray("DNS", n.DNS),
	)

	content := ini.Render([]ini.Section{
		{Name: "Unit", Entries: unitEntries},
		{Name: "Network", Entries: networkEntries},
	})

	return GeneratedUnit{Filename: n.Name + ".network", Content: content, Kind: KindNetwork}, nil
}

func compileVolume(v Volume) (GeneratedUnit, error) {
	if v.Name == "" {
		return GeneratedUnit{}, NewFieldError("volume.name", "empty volume name")
	}

	unitEntries := entry.FromString("Description", v.Description)

	volumeEntries := entry.Concat(
		entry.FromString("Driver", v.Driver),
		entry.FromRecord("Options", toRecordEntries(v.Options), nil),
		entry.FromRecord("Label", toRecordEntries(v.Labels), nil),
	)

	content := ini.Render([]ini.Section{
		{Name: "Unit", Entries: unitEntries},
		{Name: "Volume", Entries: volumeEntries},
	})

	return GeneratedUnit{Filename: v.Name + ".volume", Content: content, Kind: KindVolume}, nil
}

func formatSecret(s Secret) string {
	out := s.Name
	if s.Type != "" {
		out += ",type=" + s.Type
	}
	if s.Target != "" {
		out += ",target=" + s.Target
	}
	if s.HasUID {
		out += ",uid=" + entry.Int(s.UID)
	}
	if s.HasGID {
		out += ",gid=" + entry.Int(s.GID)
	}
	if s.Mode != "" {
		out += ",mode=" + s.Mode
	}
	return out
}

func joinArgs(args []string) string {
	if len(args) == 0 {
		return ""
	}
	out := args[0]
	for _, a := range args[1:] {
		out += " " + a
	}
	return out
}
