package ws_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/attendance/internal/adapters/http/ws"
	"github.com/okian/attendance/internal/adapters/notify"
	"github.com/okian/attendance/internal/domain/model"
	"github.com/okian/attendance/pkg/logger"
)

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func dial(srv *httptest.Server, query string) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	So(err, ShouldBeNil)
	return conn
}

func readEvent(conn *websocket.Conn) (model.AttendanceEvent, error) {
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		return model.AttendanceEvent{}, err
	}
	msg, err := notify.Decode(data)
	return msg.Event, err
}

func TestHub(t *testing.T) {
	Convey("Given a running hub behind an HTTP server", t, func() {
		hub := ws.NewHub(logger.Nop())
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go hub.Run(ctx)
		srv := httptest.NewServer(hub)
		defer srv.Close()

		So(hub.Name(), ShouldEqual, "ws")

		Convey("When two clients connect, one filtered to names starting with b", func() {
			all := dial(srv, "")
			defer all.Close()
			bobs := dial(srv, "?name=B")
			defer bobs.Close()
			So(waitFor(func() bool { return hub.Clients() == 2 }), ShouldBeTrue)

			So(hub.Publish(ctx, model.AttendanceEvent{SequenceID: 1, DisplayName: "Alice"}), ShouldBeNil)
			So(hub.Publish(ctx, model.AttendanceEvent{SequenceID: 2, DisplayName: "bob"}), ShouldBeNil)

			Convey("Then the unfiltered client sees both events in order", func() {
				first, err := readEvent(all)
				So(err, ShouldBeNil)
				So(first.DisplayName, ShouldEqual, "Alice")
				second, err := readEvent(all)
				So(err, ShouldBeNil)
				So(second.SequenceID, ShouldEqual, 2)
			})

			Convey("Then the filtered client only sees Bob", func() {
				ev, err := readEvent(bobs)
				So(err, ShouldBeNil)
				So(ev.DisplayName, ShouldEqual, "bob")
			})
		})

		Convey("When a client disconnects", func() {
			conn := dial(srv, "")
			So(waitFor(func() bool { return hub.Clients() == 1 }), ShouldBeTrue)
			conn.Close()

			Convey("Then the hub forgets it", func() {
				So(waitFor(func() bool { return hub.Clients() == 0 }), ShouldBeTrue)
			})
		})
	})

	Convey("Given a stopped hub", t, func() {
		hub := ws.NewHub(logger.Nop())
		ctx, cancel := context.WithCancel(context.Background())
		stopped := make(chan struct{})
		go func() {
			hub.Run(ctx)
			close(stopped)
		}()
		cancel()
		<-stopped

		Convey("Then publishing reports it closed", func() {
			// Fill the broadcast buffer so the only ready case is the closed hub.
			var err error
			for i := 0; i < 300 && err == nil; i++ {
				err = hub.Publish(context.Background(), model.AttendanceEvent{SequenceID: uint64(i)})
			}
			So(err, ShouldEqual, notify.ErrClosed)
		})
	})
}
