package codec_test

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/wandbrain/internal/domain/codec"
	"github.com/okian/wandbrain/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func packet(magic uint16, version, flags uint8, xq, yq int16) []byte {
	buf := make([]byte, codec.PacketSize)
	le := binary.LittleEndian
	le.PutUint16(buf[0:2], magic)
	buf[2] = version
	buf[3] = flags
	le.PutUint16(buf[4:6], 3)
	le.PutUint16(buf[6:8], 7)
	le.PutUint32(buf[8:12], 42)
	le.PutUint32(buf[12:16], 1001)
	le.PutUint16(buf[16:18], uint16(xq))
	le.PutUint16(buf[18:20], uint16(yq))
	le.PutUint32(buf[20:24], 123456)
	return buf
}

func TestDecode(t *testing.T) {
	convey.Convey("Given a well-formed wb-point-v1 packet", t, func() {
		raw := packet(codec.Magic, codec.Version, model.FlagPenDown|model.FlagStrokeStart, 0, codec.QuantMax)

		convey.Convey("When decoding it", func() {
			ev, err := codec.Decode(raw)

			convey.Convey("Then every field is recovered exactly", func() {
				convey.So(err, convey.ShouldBeNil)
				want := model.PointEvent{
					DeviceNumber: 3,
					WandID:       7,
					PacketNumber: 42,
					StrokeID:     1001,
					X:            0.0,
					Y:            1.0,
					TimestampMS:  123456,
					PenDown:      true,
					StrokeStart:  true,
				}
				if diff := cmp.Diff(want, ev); diff != "" {
					t.Errorf("decoded event mismatch (-want +got):\n%s", diff)
				}
			})
		})

		convey.Convey("When every flag bit is set", func() {
			ev, err := codec.Decode(packet(codec.Magic, codec.Version, 0x07, 100, 100))

			convey.Convey("Then all three booleans are true", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ev.PenDown, convey.ShouldBeTrue)
				convey.So(ev.StrokeStart, convey.ShouldBeTrue)
				convey.So(ev.StrokeEnd, convey.ShouldBeTrue)
			})
		})
	})

	convey.Convey("Given malformed input", t, func() {
		convey.Convey("When the length is anything but 24", func() {
			for _, n := range []int{0, 1, 12, 23, 25, 48, 1500} {
				ev, err := codec.Decode(make([]byte, n))
				convey.So(errors.Is(err, codec.ErrLength), convey.ShouldBeTrue)
				convey.So(ev, convey.ShouldResemble, model.PointEvent{})
			}
		})

		convey.Convey("When the magic is wrong", func() {
			_, err := codec.Decode(packet(0x4257, codec.Version, 1, 0, 0))
			convey.So(errors.Is(err, codec.ErrMagic), convey.ShouldBeTrue)
			convey.So(codec.Reason(err), convey.ShouldEqual, "magic")
		})

		convey.Convey("When the version is unknown", func() {
			_, err := codec.Decode(packet(codec.Magic, 2, 1, 0, 0))
			convey.So(errors.Is(err, codec.ErrVersion), convey.ShouldBeTrue)
		})

		convey.Convey("When a coordinate is negative", func() {
			_, err := codec.Decode(packet(codec.Magic, codec.Version, 1, -1, 10))
			convey.So(errors.Is(err, codec.ErrRange), convey.ShouldBeTrue)
			convey.So(codec.Reason(err), convey.ShouldEqual, "range")
		})
	})
}

func TestEncode(t *testing.T) {
	convey.Convey("Given a point event", t, func() {
		ev := model.PointEvent{
			DeviceNumber: 1,
			WandID:       2,
			StrokeID:     77,
			PacketNumber: 5,
			X:            0.5,
			Y:            0.25,
			TimestampMS:  999,
			PenDown:      true,
			StrokeEnd:    true,
		}

		convey.Convey("When encoding then decoding", func() {
			raw := codec.Encode(ev)
			got, err := codec.Decode(raw)

			convey.Convey("Then the packet is 24 bytes and identity fields survive", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(raw), convey.ShouldEqual, codec.PacketSize)
				convey.So(got.StrokeID, convey.ShouldEqual, uint32(77))
				convey.So(got.Flags(), convey.ShouldEqual, ev.Flags())
				convey.So(got.X, convey.ShouldAlmostEqual, 0.5, 1.0/codec.QuantMax)
				convey.So(got.Y, convey.ShouldAlmostEqual, 0.25, 1.0/codec.QuantMax)
			})
		})

		convey.Convey("When coordinates fall outside the unit square", func() {
			convey.So(codec.Quantize(-0.2), convey.ShouldEqual, int16(0))
			convey.So(codec.Quantize(1.7), convey.ShouldEqual, int16(codec.QuantMax))
			convey.So(codec.Quantize(1.0), convey.ShouldEqual, int16(codec.QuantMax))
		})
	})
}

func TestDecodeLegacy(t *testing.T) {
	convey.Convey("Given legacy text datagrams", t, func() {
		convey.Convey("When the text is well formed", func() {
			ev, err := codec.DecodeLegacy([]byte("0.25,0.5,1000,4\n"))

			convey.Convey("Then a pen-down point is produced", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(ev.WandID, convey.ShouldEqual, uint16(4))
				convey.So(ev.X, convey.ShouldEqual, 0.25)
				convey.So(ev.Y, convey.ShouldEqual, 0.5)
				convey.So(ev.TimestampMS, convey.ShouldEqual, uint32(1000))
				convey.So(ev.PenDown, convey.ShouldBeTrue)
				convey.So(ev.StrokeStart, convey.ShouldBeFalse)
				convey.So(ev.StrokeEnd, convey.ShouldBeFalse)
				convey.So(ev.Legacy, convey.ShouldBeTrue)
				convey.So(ev.DeviceNumber, convey.ShouldEqual, uint16(0))
				convey.So(ev.StrokeID, convey.ShouldEqual, uint32(0))
			})
		})

		convey.Convey("When the text does not match", func() {
			for _, s := range []string{"", "1,2,3", "a,b,c,d", "0.1,0.2,x,1", "0.1,0.2,3,4,5", "\xff\xfe"} {
				_, err := codec.DecodeLegacy([]byte(s))
				convey.So(errors.Is(err, codec.ErrLegacy), convey.ShouldBeTrue)
			}
		})

		convey.Convey("When coordinates are outside [0,1]", func() {
			_, err := codec.DecodeLegacy([]byte("1.5,0.5,10,1"))
			convey.So(errors.Is(err, codec.ErrRange), convey.ShouldBeTrue)
		})
	})
}
