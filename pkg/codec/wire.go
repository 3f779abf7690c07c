/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package codec

import (
	"math"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/tickharness/tickharness/pkg/recording"
	t "github.com/tickharness/tickharness/pkg/types"
)

// Field numbers of the persisted messages.
const (
	streamActions protowire.Number = 1
	streamAxes    protowire.Number = 2
	streamActors  protowire.Number = 3
	streamCounts  protowire.Number = 4

	actionName protowire.Number = 1
	actionKind protowire.Number = 2
	actionTime protowire.Number = 3

	axisName  protowire.Number = 1
	axisValue protowire.Number = 2
	axisTime  protowire.Number = 3

	actorName       protowire.Number = 1
	actorComponents protowire.Number = 2
	actorTime       protowire.Number = 3

	componentName protowire.Number = 1
	componentPosX protowire.Number = 2
	componentPosY protowire.Number = 3
	componentPosZ protowire.Number = 4
	componentRotX protowire.Number = 5
	componentRotY protowire.Number = 6
	componentRotZ protowire.Number = 7
)

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendName(b []byte, num protowire.Number, name []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, name)
}

func appendFloat(b []byte, num protowire.Number, f float32) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(f))
}

func appendQuantized(b []byte, num protowire.Number, f float32) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(int64(recording.QuantizeComponent(f))))
}

// appendStream always writes the sequence counts first, so an empty stream
// still has a payload.
func appendStream(b []byte, s *recording.Stream) []byte {
	var msg []byte
	for _, n := range []int{len(s.Actions), len(s.Axes), len(s.Actors)} {
		msg = protowire.AppendVarint(msg, uint64(n))
	}
	b = appendMessage(b, streamCounts, msg)

	for _, a := range s.Actions {
		msg = appendName(msg[:0], actionName, a.Name)
		msg = protowire.AppendTag(msg, actionKind, protowire.VarintType)
		msg = protowire.AppendVarint(msg, uint64(a.Kind))
		msg = appendFloat(msg, actionTime, a.Time.Float32())
		b = appendMessage(b, streamActions, msg)
	}

	for _, a := range s.Axes {
		msg = appendName(msg[:0], axisName, a.Name)
		msg = appendFloat(msg, axisValue, a.Value)
		msg = appendFloat(msg, axisTime, a.Time.Float32())
		b = appendMessage(b, streamAxes, msg)
	}

	var component []byte
	for _, a := range s.Actors {
		msg = appendName(msg[:0], actorName, a.Actor)
		for _, c := range a.Components {
			component = appendName(component[:0], componentName, c.Name)
			component = appendQuantized(component, componentPosX, c.Position.X)
			component = appendQuantized(component, componentPosY, c.Position.Y)
			component = appendQuantized(component, componentPosZ, c.Position.Z)
			component = appendQuantized(component, componentRotX, c.Rotation.X)
			component = appendQuantized(component, componentRotY, c.Rotation.Y)
			component = appendQuantized(component, componentRotZ, c.Rotation.Z)
			msg = appendMessage(msg, actorComponents, component)
		}
		msg = appendFloat(msg, actorTime, a.Time.Float32())
		b = appendMessage(b, streamActors, msg)
	}

	return b
}

// consumeFields walks the fields of one message.  visit returns the number
// of bytes it consumed, zero leaves an unknown field to be skipped.
func consumeFields(b []byte, visit func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		m, err := visit(num, typ, b)
		if err != nil {
			return err
		}

		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}

		if m < 0 {
			return errors.WithMessagef(protowire.ParseError(m), "field %d", num)
		}
		b = b[m:]
	}
	return nil
}

func expectType(num protowire.Number, typ, want protowire.Type) error {
	if typ != want {
		return errors.Errorf("field %d has wire type %d, expected %d", num, typ, want)
	}
	return nil
}

func consumeBytes(num protowire.Number, typ protowire.Type, b []byte, dest *[]byte) (int, error) {
	if err := expectType(num, typ, protowire.BytesType); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeBytes(b)
	*dest = v
	return n, nil
}

func consumeFloat(num protowire.Number, typ protowire.Type, b []byte, dest *float32) (int, error) {
	if err := expectType(num, typ, protowire.Fixed32Type); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeFixed32(b)
	*dest = math.Float32frombits(v)
	return n, nil
}

func consumeSeconds(num protowire.Number, typ protowire.Type, b []byte, dest *t.Seconds) (int, error) {
	var f float32
	n, err := consumeFloat(num, typ, b, &f)
	*dest = t.Seconds(f)
	return n, err
}

func consumeQuantized(num protowire.Number, typ protowire.Type, b []byte, dest *float32) (int, error) {
	if err := expectType(num, typ, protowire.VarintType); err != nil {
		return 0, err
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return n, nil
	}
	q := protowire.DecodeZigZag(v)
	if q < math.MinInt32 || q > math.MaxInt32 {
		return 0, errors.Errorf("field %d value %d overflows int32", num, q)
	}
	*dest = float32(q)
	return n, nil
}

func consumeCounts(msg []byte) ([]uint64, error) {
	var counts []uint64
	for len(msg) > 0 {
		v, n := protowire.ConsumeVarint(msg)
		if n < 0 {
			return nil, errors.WithMessage(protowire.ParseError(n), "sequence counts")
		}
		counts = append(counts, v)
		msg = msg[n:]
	}
	if len(counts) != 3 {
		return nil, errors.Errorf("expected 3 sequence counts, got %d", len(counts))
	}
	return counts, nil
}

func consumeStream(b []byte, s *recording.Stream) error {
	var counts []uint64
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != streamActions && num != streamAxes && num != streamActors && num != streamCounts {
			return 0, nil
		}

		var msg []byte
		n, err := consumeBytes(num, typ, b, &msg)
		if err != nil || n < 0 {
			return n, err
		}

		switch num {
		case streamCounts:
			counts, err = consumeCounts(msg)
		case streamActions:
			a := recording.ActionEvent{}
			err = consumeAction(msg, &a)
			s.Actions = append(s.Actions, a)
		case streamAxes:
			a := recording.AxisEvent{}
			err = consumeAxis(msg, &a)
			s.Axes = append(s.Axes, a)
		case streamActors:
			a := recording.ActorFrame{}
			err = consumeActor(msg, &a)
			s.Actors = append(s.Actors, a)
		}
		return n, err
	})
	if err != nil || counts == nil {
		return err
	}

	if counts[0] != uint64(len(s.Actions)) || counts[1] != uint64(len(s.Axes)) || counts[2] != uint64(len(s.Actors)) {
		return errors.Errorf("sequence counts %v do not match %d actions, %d axes, %d actor frames",
			counts, len(s.Actions), len(s.Axes), len(s.Actors))
	}
	return nil
}

func consumeAction(b []byte, a *recording.ActionEvent) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case actionName:
			return consumeBytes(num, typ, b, &a.Name)
		case actionKind:
			if err := expectType(num, typ, protowire.VarintType); err != nil {
				return 0, err
			}
			v, n := protowire.ConsumeVarint(b)
			if n >= 0 && v > math.MaxUint8 {
				return 0, errors.Errorf("input event kind %d out of range", v)
			}
			a.Kind = recording.InputEventKind(v)
			return n, nil
		case actionTime:
			return consumeSeconds(num, typ, b, &a.Time)
		}
		return 0, nil
	})
}

func consumeAxis(b []byte, a *recording.AxisEvent) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case axisName:
			return consumeBytes(num, typ, b, &a.Name)
		case axisValue:
			return consumeFloat(num, typ, b, &a.Value)
		case axisTime:
			return consumeSeconds(num, typ, b, &a.Time)
		}
		return 0, nil
	})
}

func consumeActor(b []byte, a *recording.ActorFrame) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case actorName:
			return consumeBytes(num, typ, b, &a.Actor)
		case actorComponents:
			var msg []byte
			n, err := consumeBytes(num, typ, b, &msg)
			if err != nil || n < 0 {
				return n, err
			}
			c := recording.ComponentFrame{}
			if err := consumeComponent(msg, &c); err != nil {
				return 0, err
			}
			a.Components = append(a.Components, c)
			return n, nil
		case actorTime:
			return consumeSeconds(num, typ, b, &a.Time)
		}
		return 0, nil
	})
}

func consumeComponent(b []byte, c *recording.ComponentFrame) error {
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case componentName:
			return consumeBytes(num, typ, b, &c.Name)
		case componentPosX:
			return consumeQuantized(num, typ, b, &c.Position.X)
		case componentPosY:
			return consumeQuantized(num, typ, b, &c.Position.Y)
		case componentPosZ:
			return consumeQuantized(num, typ, b, &c.Position.Z)
		case componentRotX:
			return consumeQuantized(num, typ, b, &c.Rotation.X)
		case componentRotY:
			return consumeQuantized(num, typ, b, &c.Rotation.Y)
		case componentRotZ:
			return consumeQuantized(num, typ, b, &c.Rotation.Z)
		}
		return 0, nil
	})
}
