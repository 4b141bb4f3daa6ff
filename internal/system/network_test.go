package system

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	stdout string
	err    error
	calls  []string
}

func (f *fakeRunner) Run(ctx context.Context, cmd string, args ...string) (string, string, error) {
	f.calls = append(f.calls, cmd)
	return f.stdout, "boom", f.err
}

func TestHostIPv4(t *testing.T) {
	r := &fakeRunner{stdout: "192.168.1.20 10.0.0.4 fe80::1 \n"}
	ips, err := HostIPv4(context.Background(), r)
	require.NoError(t, err)
	assert.Equal(t, []string{"192.168.1.20", "10.0.0.4"}, ips)
	assert.Equal(t, []string{"hostname"}, r.calls)

	_, err = HostIPv4(context.Background(), &fakeRunner{err: errors.New("exit 1")})
	assert.ErrorContains(t, err, "boom")
}

func TestListenURLs(t *testing.T) {
	ips := []string{"192.168.1.20"}
	assert.Equal(t, []string{"http://192.168.1.20/"}, ListenURLs(":80", ips))
	assert.Equal(t, []string{"http://192.168.1.20:8080/"}, ListenURLs("0.0.0.0:8080", ips))
	assert.Equal(t, []string{"http://127.0.0.1:9000/"}, ListenURLs("127.0.0.1:9000", ips))
	assert.Nil(t, ListenURLs("garbage", ips))
}
