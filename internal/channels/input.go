package channels

import (
	"github.com/openauto-hu/aahu/internal/aawire"
)

// TouchAction mirrors the Android MotionEvent action codes the protocol
// reuses directly.
type TouchAction int32

const (
	TouchActionDown        TouchAction = 0
	TouchActionUp          TouchAction = 1
	TouchActionMove        TouchAction = 2
	TouchActionPointerDown TouchAction = 5
	TouchActionPointerUp   TouchAction = 6
)

// TouchPoint is one finger's contact coordinates for a TOUCH_INDICATION.
type TouchPoint struct {
	X  int32 `cbor:"1,keyasint"`
	Y  int32 `cbor:"2,keyasint"`
	ID int32 `cbor:"3,keyasint"`
}

// TouchIndicationBody carries one multi-touch event.
type TouchIndicationBody struct {
	Pointers    []TouchPoint `cbor:"1,keyasint"`
	ActionIndex int32        `cbor:"2,keyasint"`
	Action      TouchAction  `cbor:"3,keyasint"`
}

// KeyBindingRequestBody negotiates which key codes the HU wants routed to
// it as physical button presses (media next/prev, call answer/hangup...).
type KeyBindingRequestBody struct {
	Keycodes []int32 `cbor:"1,keyasint"`
}

type KeyBindingResponseBody struct {
	Status SetupStatus `cbor:"1,keyasint"`
}

// KeyEventIndicationBody reports a physical button state change back from
// the phone (used for steering-wheel remote passthrough).
type KeyEventIndicationBody struct {
	Keycode int32 `cbor:"1,keyasint"`
	Down    bool  `cbor:"2,keyasint"`
}

// InputHandler owns the touch/key channel: it is stateless beyond the
// channel binding, since touch events flow one way (HU -> phone) and key
// bindings are negotiated once at open time.
type InputHandler struct {
	channelID uint8
	sender    Sender
	keycodes  []int32

	onKeyEvent func(keycode int32, down bool)
}

func NewInputHandler(sender Sender, keycodes []int32, onKeyEvent func(keycode int32, down bool)) *InputHandler {
	return &InputHandler{sender: sender, keycodes: keycodes, onKeyEvent: onKeyEvent}
}

func (i *InputHandler) SetChannelID(id uint8) { i.channelID = id }
func (i *InputHandler) ChannelID() uint8      { return i.channelID }

func (i *InputHandler) OnChannelOpened() {}
func (i *InputHandler) OnChannelClosed() {}

func (i *InputHandler) OnMessage(messageID uint16, body []byte, dataOffset int) {
	switch messageID {
	case GenericSetupRequest:
		_ = i.sendKeyBindingResponse()
	case GenericIndication:
		var ev KeyEventIndicationBody
		if err := aawire.Unmarshal(body, &ev); err != nil {
			return
		}
		if i.onKeyEvent != nil {
			i.onKeyEvent(ev.Keycode, ev.Down)
		}
	}
}

func (i *InputHandler) sendKeyBindingResponse() error {
	body, err := aawire.Marshal(KeyBindingResponseBody{Status: SetupStatusOK})
	if err != nil {
		return err
	}
	return i.sender.SendMessage(i.channelID, GenericSetupResponse, body)
}

// SendTouchIndication forwards one multi-touch frame to the phone.
func (i *InputHandler) SendTouchIndication(pointers []TouchPoint, actionIndex int, action TouchAction) error {
	body, err := aawire.Marshal(TouchIndicationBody{
		Pointers:    pointers,
		ActionIndex: int32(actionIndex),
		Action:      action,
	})
	if err != nil {
		return err
	}
	return i.sender.SendMessage(i.channelID, TouchIndication, body)
}
