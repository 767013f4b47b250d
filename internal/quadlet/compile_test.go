package quadlet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileContainerGolden(t *testing.T) {
	c := Container{
		Name:        "web",
		Description: "web service",
		Image:       "ghcr.io/org/web",
		ImageDigest: "sha256:abcd",
		Dependencies: Dependencies{
			Requires: []string{"db"},
		},
		Network: NetworkAttachment{
			Mode:         "pasta",
			PublishPorts: []Port{{Host: 8080, Container: 80}},
		},
		Volumes: []VolumeMount{{Source: "/srv/web/data", Target: "/data"}},
		Env:     []RecordPair{{Key: "FOO", Value: "bar"}},
		Security: Security{
			HasNoNewPrivileges: true,
			NoNewPrivileges:    true,
		},
		Resources: Resources{Memory: "512m"},
		Service:   ServiceConfig{Restart: "on-failure"},
	}

	units, err := Compile(UnitDescriptor{Kind: KindContainer, Container: &c}, CompileOptions{SELinuxEnforcing: true})
	require.NoError(t, err)
	require.Len(t, units, 1)

	want := "[Unit]\n" +
		"Description=web service\n" +
		"Requires=db.service\n" +
		"After=db.service\n" +
		"\n" +
		"[Container]\n" +
		"Image=ghcr.io/org/web@sha256:abcd\n" +
		"ContainerName=web\n" +
		"Network=pasta\n" +
		"PublishPort=8080:80/tcp\n" +
		"Volume=/srv/web/data:/data:Z\n" +
		"Environment=FOO=bar\n" +
		"NoNewPrivileges=true\n" +
		"Memory=512m\n" +
		"\n" +
		"[Service]\n" +
		"Restart=on-failure\n" +
		"\n" +
		"[Install]\n" +
		"WantedBy=default.target\n"

	assert.Equal(t, want, units[0].Content)
	assert.Equal(t, "web.container", units[0].Filename)
}

func TestCompileContainerRequiresImage(t *testing.T) {
	c := Container{Name: "x"}
	_, err := Compile(UnitDescriptor{Kind: KindContainer, Container: &c}, CompileOptions{})
	assert.Error(t, err)
}

func TestCompileNetwork(t *testing.T) {
	n := Network{Name: "backend", Internal: true, HasInternal: true, Subnet: "10.89.0.0/24"}
	units, err := Compile(UnitDescriptor{Kind: KindNetwork, Network: &n}, CompileOptions{})
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "backend.network", units[0].Filename)
	assert.Equal(t, "[Network]\nInternal=true\nSubnet=10.89.0.0/24\n", units[0].Content)
}

func TestCompileVolume(t *testing.T) {
	v := Volume{Name: "data", Driver: "local"}
	units, err := Compile(UnitDescriptor{Kind: KindVolume, Volume: &v}, CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "data.volume", units[0].Filename)
	assert.Equal(t, "[Volume]\nDriver=local\n", units[0].Content)
}

func TestCompileStackValidatesPeerNames(t *testing.T) {
	stack := Stack{
		Name: "app",
		Containers: []StackContainer{
			{Container{Name: "web", Image: "alpine", Dependencies: Dependencies{Requires: []string{"missing"}}}},
		},
	}
	_, err := CompileStack(stack, CompileOptions{})
	assert.Error(t, err)
}

func TestCompileStackRewritesPeers(t *testing.T) {
	stack := Stack{
		Name: "app",
		Containers: []StackContainer{
			{Container{Name: "db", Image: "postgres"}},
			{Container{Name: "web", Image: "alpine", Dependencies: Dependencies{Requires: []string{"db"}}}},
		},
	}
	units, err := CompileStack(stack, CompileOptions{})
	require.NoError(t, err)
	require.Len(t, units, 2)
	assert.Contains(t, units[1].Content, "Requires=db.service")
}
