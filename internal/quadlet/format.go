package quadlet

import (
	"fmt"
	"strings"
)

// FormatPort renders a Port as the PublishPort= value: [hostIp:]host:container/protocol.
// Protocol defaults to "tcp" when unset. An IPv6 host IP is bracket-wrapped
// per the familiar [::1]:host:container convention.
func FormatPort(p Port) string {
	var b strings.Builder
	if p.HostIP != "" {
		if strings.Contains(p.HostIP, ":") {
			fmt.Fprintf(&b, "[%s]:", p.HostIP)
		} else {
			b.WriteString(p.HostIP)
			b.WriteString(":")
		}
	}
	if p.Host != 0 {
		fmt.Fprintf(&b, "%d:", p.Host)
	}
	fmt.Fprintf(&b, "%d", p.Container)
	protocol := p.Protocol
	if protocol == "" {
		protocol = "tcp"
	}
	b.WriteString("/")
	b.WriteString(protocol)
	return b.String()
}

// FormatNetworkMode renders a NetworkAttachment's mode to the Network= value
// systemd-nspawn/Quadlet expects. Only "pasta" honors MapHostLoopback, via
// the --map-host-loopback pasta CLI option appended to the mode string.
func FormatNetworkMode(n NetworkAttachment) string {
	switch n.Mode {
	case "pasta":
		if n.MapHostLoopback != "" {
			return fmt.Sprintf("pasta:--map-host-loopback=%s", n.MapHostLoopback)
		}
		return "pasta"
	case "slirp4netns", "host", "none":
		return n.Mode
	default:
		return ""
	}
}

// FormatVolumeMount renders a VolumeMount as the Volume= value:
// source:target[:options]. When the mount is a bind mount under SELinux
// enforcement and carries no existing "z"/"Z" relabeling option, the
// compiler appends the "Z" option (private, unshared relabeling) so the container can
// actually read the path -- this is the one place FormatVolumeMount takes a
// selinuxEnforcing flag rather than being a pure function of VolumeMount
// alone.
func FormatVolumeMount(v VolumeMount, selinuxEnforcing bool) string {
	opts := append([]string(nil), v.Options...)
	if selinuxEnforcing && v.Kind() == MountBind && !v.HasOption("z") && !v.HasOption("Z") {
		opts = append(opts, "Z")
	}

	var b strings.Builder
	b.WriteString(v.Source)
	b.WriteString(":")
	b.WriteString(v.Target)
	if len(opts) > 0 {
		b.WriteString(":")
		b.WriteString(strings.Join(opts, ","))
	}
	return b.String()
}

// FormatUserNamespace renders a UserNamespace to its UserNS= value.
// keep-id only appends the ":uid=...,gid=..." suffix when at least one of
// UID/GID was explicitly set; auto only appends ":size=N" when AutoSize was
// set; host has no suffix.
func FormatUserNamespace(u UserNamespace) string {
	switch u.Mode {
	case UserNSKeepID:
		var parts []string
		if u.HasUID {
			parts = append(parts, fmt.Sprintf("uid=%d", u.UID))
		}
		if u.HasGID {
			parts = append(parts, fmt.Sprintf("gid=%d", u.GID))
		}
		if len(parts) == 0 {
			return "keep-id"
		}
		return "keep-id:" + strings.Join(parts, ",")
	case UserNSAuto:
		if u.HasAutoSize {
			return fmt.Sprintf("auto:size=%d", u.AutoSize)
		}
		return "auto"
	case UserNSHost:
		return "host"
	default:
		return ""
	}
}

// rewriteUnitName appends the ".service" suffix a bare peer name needs to
// become a systemd unit reference, leaving already-suffixed names (any
// ".xxxx" unit type, not just ".service") untouched.
func rewriteUnitName(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".service"
}

// rewriteUnitNames applies rewriteUnitName to every element of names.
func rewriteUnitNames(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = rewriteUnitName(n)
	}
	return out
}
