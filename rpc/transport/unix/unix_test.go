package unix

import (
	"testing"

	transporttesting "github.com/ValentinKolb/sKV/rpc/transport/testing"
)

func TestUnixTransport(t *testing.T) {
	transporttesting.RunTransportTests(t, "unix", func(t *testing.T) transporttesting.Setup {
		return transporttesting.Setup{
			Server: NewUnixServerTransport(),
			Client: NewUnixClientTransport(),
			Endpoint: func(t *testing.T) string {
				return transporttesting.TempChannel(t, "register.sock")
			},
			Channel:      transporttesting.TempChannel,
			BlockingOpen: true,
		}
	})
}
