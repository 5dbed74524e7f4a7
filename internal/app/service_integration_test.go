package service_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/wandbrain/internal/adapters/http/api"
	"github.com/okian/wandbrain/internal/adapters/stream"
	service "github.com/okian/wandbrain/internal/app"
	"github.com/okian/wandbrain/internal/domain/model"
)

func TestServiceIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("binds a real UDP socket")
	}

	Convey("Given a service listening on a real loopback socket", t, func() {
		cfg := testConfig(t)
		writeTemplate(t, cfg.TemplateDir, "diagonal", diagonal(40))

		svc := service.New(service.WithConfig(cfg))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		addr, ok := svc.ReceiverAddr().(*net.UDPAddr)
		So(ok, ShouldBeTrue)
		So(addr.Port, ShouldBeGreaterThan, 0)

		srv := httptest.NewServer(api.NewServer(svc, func() any { return svc.Stats() },
			api.WithStream(svc.Stream()),
		).Routes(ctx))
		defer srv.Close()

		Convey("When a wand draws a diagonal", func() {
			wsCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			conn, _, err := websocket.Dial(wsCtx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/stream", nil)
			So(err, ShouldBeNil)
			defer conn.CloseNow()
			So(waitFor(func() bool { return svc.Stream().Subscribers() == 1 }), ShouldBeTrue)

			client, err := net.DialUDP("udp", nil, addr)
			So(err, ShouldBeNil)
			defer client.Close()
			for _, raw := range strokePackets(3, 9, 4242, diagonal(40)) {
				_, err := client.Write(raw)
				So(err, ShouldBeNil)
				// Loopback rarely drops, but pacing keeps the socket buffer shallow.
				time.Sleep(time.Millisecond)
			}

			Convey("Then subscribers see it finalized and then scored", func() {
				var finalized, scored stream.Message
				So(wsjson.Read(wsCtx, conn, &finalized), ShouldBeNil)
				So(wsjson.Read(wsCtx, conn, &scored), ShouldBeNil)

				So(finalized.Type, ShouldEqual, stream.TypeAttemptFinalized)
				So(finalized.Result.AttemptID, ShouldEqual, 4242)
				So(finalized.Result.NumPoints, ShouldEqual, 40)
				So(scored.Type, ShouldEqual, stream.TypeAttemptScored)
				So(scored.Result.Score, ShouldNotBeNil)
				So(scored.Result.Score.TemplateID, ShouldEqual, "diagonal")
			})

			Convey("And the HTTP API serves the scored attempt", func() {
				So(waitFor(func() bool {
					res, err := svc.ResultByAttempt(ctx, 4242)
					return err == nil && res.Scored()
				}), ShouldBeTrue)

				resp, err := http.Get(srv.URL + "/v1/attempts/4242")
				So(err, ShouldBeNil)
				defer resp.Body.Close()
				So(resp.StatusCode, ShouldEqual, http.StatusOK)

				var res model.FinalResult
				So(json.NewDecoder(resp.Body).Decode(&res), ShouldBeNil)
				So(res.Device, ShouldEqual, 3)
				So(res.Wand, ShouldEqual, 9)
				So(res.Score.Score, ShouldEqual, 100)

				png, err := http.Get(srv.URL + "/v1/render/latest.png?wand=9")
				So(err, ShouldBeNil)
				defer png.Body.Close()
				So(png.StatusCode, ShouldEqual, http.StatusOK)
				So(png.Header.Get("Content-Type"), ShouldEqual, "image/png")

				stats, err := http.Get(srv.URL + "/stats")
				So(err, ShouldBeNil)
				defer stats.Body.Close()
				var st service.Stats
				So(json.NewDecoder(stats.Body).Decode(&st), ShouldBeNil)
				So(st.Started, ShouldBeTrue)
				So(st.Tracker.Received, ShouldEqual, 41)
				So(st.Results, ShouldEqual, 1)
			})
		})
	})
}

func TestServiceRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("binds a real UDP socket")
	}

	Convey("Given a service started and stopped repeatedly", t, func() {
		svc := service.New(service.WithConfig(testConfig(t)))
		ctx := context.Background()

		for i := 0; i < 3; i++ {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.ReceiverAddr(), ShouldNotBeNil)
			svc.Stop()
		}

		Convey("Then it ends stopped and can start again", func() {
			So(svc.Stats().Started, ShouldBeFalse)
			So(svc.Start(ctx), ShouldBeNil)
			defer svc.Stop()
			So(svc.Stats().Started, ShouldBeTrue)
		})
	})
}
