package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bunkerprices-service/internal/application"
	"bunkerprices-service/internal/infrastructure/ws"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestStream_ReceivesTriggeredPoll(t *testing.T) {
	e := newEnv(nil)
	hub := ws.NewHub(nil, nil)
	defer hub.Close()
	e.svc = application.NewPricesService(e.poller, e.store, nil, nil, application.WithNotifier(hub))

	srv := httptest.NewServer(setup(e, WithStream(hub)))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws/prices", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	resp, err := http.Post(srv.URL+"/prices/poll", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg ws.PriceMessage
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, "prices", msg.Type)
	require.Len(t, msg.Prices, 2)
}
