package quadlet

import (
	"os"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// descriptorFixture is the shape an external loader would hand the
// compiler for a single container: a flattened YAML document, not
// UnitDescriptor itself (loading stays out of scope; this is test-only
// plumbing to exercise Compile against something that looks like what
// such a loader would produce).
type descriptorFixture struct {
	Name        string            `yaml:"name"`
	Description string            `yaml:"description"`
	Image       string            `yaml:"image"`
	Requires    []string          `yaml:"requires"`
	Network     string            `yaml:"network"`
	Ports       []portFixture     `yaml:"ports"`
	Volumes     []volumeFixture   `yaml:"volumes"`
	Env         map[string]string `yaml:"env"`
	Restart     string            `yaml:"restart"`
}

type portFixture struct {
	Host      int `yaml:"host"`
	Container int `yaml:"container"`
}

type volumeFixture struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
}

func (d descriptorFixture) toContainer() Container {
	ports := make([]Port, len(d.Ports))
	for i, p := range d.Ports {
		ports[i] = Port{Host: p.Host, Container: p.Container}
	}

	volumes := make([]VolumeMount, len(d.Volumes))
	for i, v := range d.Volumes {
		volumes[i] = VolumeMount{Source: v.Source, Target: v.Target}
	}

	// map iteration order is unspecified; sort so the golden output below
	// is deterministic regardless of which order yaml.v3 populates the map.
	keys := make([]string, 0, len(d.Env))
	for k := range d.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	env := make([]RecordPair, len(keys))
	for i, k := range keys {
		env[i] = RecordPair{Key: k, Value: d.Env[k]}
	}

	return Container{
		Name:         d.Name,
		Description:  d.Description,
		Image:        d.Image,
		Dependencies: Dependencies{Requires: d.Requires},
		Network:      NetworkAttachment{Mode: d.Network, PublishPorts: ports},
		Volumes:      volumes,
		Env:          env,
		Service:      ServiceConfig{Restart: d.Restart},
	}
}

func TestCompileContainerFromYAMLFixture(t *testing.T) {
	raw, err := os.ReadFile("testdata/web.yaml")
	require.NoError(t, err)

	var fixture descriptorFixture
	require.NoError(t, yaml.Unmarshal(raw, &fixture))

	c := fixture.toContainer()
	units, err := Compile(UnitDescriptor{Kind: KindContainer, Container: &c}, CompileOptions{SELinuxEnforcing: true})
	require.NoError(t, err)
	require.Len(t, units, 1)

	want := "[Unit]\n" +
		"Description=web service\n" +
		"Requires=db.service\n" +
		"After=db.service\n" +
		"\n" +
		"[Container]\n" +
		"Image=ghcr.io/org/web\n" +
		"ContainerName=web\n" +
		"Network=pasta\n" +
		"PublishPort=8080:80/tcp\n" +
		"Volume=/srv/web/data:/data:Z\n" +
		"Environment=FOO=bar\n" +
		"NoNewPrivileges=true\n" +
		"\n" +
		"[Service]\n" +
		"Restart=on-failure\n" +
		"\n" +
		"[Install]\n" +
		"WantedBy=default.target\n"

	assert.Equal(t, want, units[0].Content)
	assert.Equal(t, "web.container", units[0].Filename)
}
