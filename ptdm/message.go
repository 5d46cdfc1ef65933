// Package ptdm talks to the pi-top device manager (the hub daemon) over its
// two ZeroMQ endpoints: a request/response socket and a publisher.
//
// Messages are ASCII strings "<id>|<p1>|<p2>...". A response id is always
// the request id plus 100.
package ptdm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

type MessageId int

const (
	REQ_PING                        MessageId = 110
	REQ_GET_DEVICE_ID               MessageId = 111
	REQ_GET_BRIGHTNESS              MessageId = 112
	REQ_SET_BRIGHTNESS              MessageId = 113
	REQ_INCREMENT_BRIGHTNESS        MessageId = 114
	REQ_DECREMENT_BRIGHTNESS        MessageId = 115
	REQ_BLANK_SCREEN                MessageId = 116
	REQ_UNBLANK_SCREEN              MessageId = 117
	REQ_GET_BATTERY_STATE           MessageId = 118
	REQ_GET_PERIPHERAL_ENABLED      MessageId = 119
	REQ_GET_SCREEN_BLANKING_TIMEOUT MessageId = 120
	REQ_SET_SCREEN_BLANKING_TIMEOUT MessageId = 121
	REQ_GET_LID_OPEN_STATE          MessageId = 122
	REQ_GET_SCREEN_BACKLIGHT_STATE  MessageId = 123
	REQ_SET_SCREEN_BACKLIGHT_STATE  MessageId = 124
	REQ_GET_OLED_CONTROL            MessageId = 125
	REQ_SET_OLED_CONTROL            MessageId = 126
	REQ_GET_OLED_SPI_BUS            MessageId = 127
	REQ_SET_OLED_SPI_BUS            MessageId = 128

	RSP_ERR_SERVER      MessageId = 201
	RSP_ERR_MALFORMED   MessageId = 202
	RSP_ERR_UNSUPPORTED MessageId = 203

	RSP_PING                        MessageId = 210
	RSP_GET_DEVICE_ID               MessageId = 211
	RSP_GET_BRIGHTNESS              MessageId = 212
	RSP_SET_BRIGHTNESS              MessageId = 213
	RSP_INCREMENT_BRIGHTNESS        MessageId = 214
	RSP_DECREMENT_BRIGHTNESS        MessageId = 215
	RSP_BLANK_SCREEN                MessageId = 216
	RSP_UNBLANK_SCREEN              MessageId = 217
	RSP_GET_BATTERY_STATE           MessageId = 218
	RSP_GET_PERIPHERAL_ENABLED      MessageId = 219
	RSP_GET_SCREEN_BLANKING_TIMEOUT MessageId = 220
	RSP_SET_SCREEN_BLANKING_TIMEOUT MessageId = 221
	RSP_GET_LID_OPEN_STATE          MessageId = 222
	RSP_GET_SCREEN_BACKLIGHT_STATE  MessageId = 223
	RSP_SET_SCREEN_BACKLIGHT_STATE  MessageId = 224
	RSP_GET_OLED_CONTROL            MessageId = 225
	RSP_SET_OLED_CONTROL            MessageId = 226
	RSP_GET_OLED_SPI_BUS            MessageId = 227
	RSP_SET_OLED_SPI_BUS            MessageId = 228

	PUB_BRIGHTNESS_CHANGED        MessageId = 300
	PUB_PERIPHERAL_CONNECTED      MessageId = 301
	PUB_PERIPHERAL_DISCONNECTED   MessageId = 302
	PUB_SHUTDOWN_REQUESTED        MessageId = 303
	PUB_REBOOT_REQUIRED           MessageId = 304
	PUB_BATTERY_STATE_CHANGED     MessageId = 305
	PUB_SCREEN_BLANKED            MessageId = 306
	PUB_SCREEN_UNBLANKED          MessageId = 307
	PUB_LOW_BATTERY_WARNING       MessageId = 308
	PUB_CRITICAL_BATTERY_WARNING  MessageId = 309
	PUB_LID_CLOSED                MessageId = 310
	PUB_LID_OPENED                MessageId = 311
	PUB_UNSUPPORTED_HARDWARE      MessageId = 312
	PUB_V3_BUTTON_UP_PRESSED      MessageId = 313
	PUB_V3_BUTTON_UP_RELEASED     MessageId = 314
	PUB_V3_BUTTON_DOWN_PRESSED    MessageId = 315
	PUB_V3_BUTTON_DOWN_RELEASED   MessageId = 316
	PUB_V3_BUTTON_SELECT_PRESSED  MessageId = 317
	PUB_V3_BUTTON_SELECT_RELEASED MessageId = 318
	PUB_V3_BUTTON_CANCEL_PRESSED  MessageId = 319
	PUB_V3_BUTTON_CANCEL_RELEASED MessageId = 320
	PUB_KEYBOARD_DOCKED           MessageId = 321
	PUB_KEYBOARD_UNDOCKED         MessageId = 322
	PUB_KEYBOARD_CONNECTED        MessageId = 323
	PUB_FAILED_KEYBOARD_CONNECT   MessageId = 324
	PUB_OLED_CONTROL_CHANGED      MessageId = 325
	PUB_OLED_SPI_BUS_CHANGED      MessageId = 326
	PUB_PITOPD_READY              MessageId = 327
)

type ParamType int

const (
	INT_PARAM ParamType = iota
	FLOAT_PARAM
)

type messageSpec struct {
	name   string
	params []ParamType
}

var (
	noParams   []ParamType
	oneInt     = []ParamType{INT_PARAM}
	batteryFmt = []ParamType{INT_PARAM, INT_PARAM, INT_PARAM, INT_PARAM}
)

var catalogue = map[MessageId]messageSpec{
	REQ_PING:                        {"REQ_PING", noParams},
	REQ_GET_DEVICE_ID:               {"REQ_GET_DEVICE_ID", noParams},
	REQ_GET_BRIGHTNESS:              {"REQ_GET_BRIGHTNESS", noParams},
	REQ_SET_BRIGHTNESS:              {"REQ_SET_BRIGHTNESS", oneInt},
	REQ_INCREMENT_BRIGHTNESS:        {"REQ_INCREMENT_BRIGHTNESS", noParams},
	REQ_DECREMENT_BRIGHTNESS:        {"REQ_DECREMENT_BRIGHTNESS", noParams},
	REQ_BLANK_SCREEN:                {"REQ_BLANK_SCREEN", noParams},
	REQ_UNBLANK_SCREEN:              {"REQ_UNBLANK_SCREEN", noParams},
	REQ_GET_BATTERY_STATE:           {"REQ_GET_BATTERY_STATE", noParams},
	REQ_GET_PERIPHERAL_ENABLED:      {"REQ_GET_PERIPHERAL_ENABLED", oneInt},
	REQ_GET_SCREEN_BLANKING_TIMEOUT: {"REQ_GET_SCREEN_BLANKING_TIMEOUT", noParams},
	REQ_SET_SCREEN_BLANKING_TIMEOUT: {"REQ_SET_SCREEN_BLANKING_TIMEOUT", oneInt},
	REQ_GET_LID_OPEN_STATE:          {"REQ_GET_LID_OPEN_STATE", noParams},
	REQ_GET_SCREEN_BACKLIGHT_STATE:  {"REQ_GET_SCREEN_BACKLIGHT_STATE", noParams},
	REQ_SET_SCREEN_BACKLIGHT_STATE:  {"REQ_SET_SCREEN_BACKLIGHT_STATE", oneInt},
	REQ_GET_OLED_CONTROL:            {"REQ_GET_OLED_CONTROL", noParams},
	REQ_SET_OLED_CONTROL:            {"REQ_SET_OLED_CONTROL", oneInt},
	REQ_GET_OLED_SPI_BUS:            {"REQ_GET_OLED_SPI_BUS", noParams},
	REQ_SET_OLED_SPI_BUS:            {"REQ_SET_OLED_SPI_BUS", oneInt},

	RSP_ERR_SERVER:      {"RSP_ERR_SERVER", noParams},
	RSP_ERR_MALFORMED:   {"RSP_ERR_MALFORMED", noParams},
	RSP_ERR_UNSUPPORTED: {"RSP_ERR_UNSUPPORTED", noParams},

	RSP_PING:                        {"RSP_PING", noParams},
	RSP_GET_DEVICE_ID:               {"RSP_GET_DEVICE_ID", oneInt},
	RSP_GET_BRIGHTNESS:              {"RSP_GET_BRIGHTNESS", oneInt},
	RSP_SET_BRIGHTNESS:              {"RSP_SET_BRIGHTNESS", noParams},
	RSP_INCREMENT_BRIGHTNESS:        {"RSP_INCREMENT_BRIGHTNESS", noParams},
	RSP_DECREMENT_BRIGHTNESS:        {"RSP_DECREMENT_BRIGHTNESS", noParams},
	RSP_BLANK_SCREEN:                {"RSP_BLANK_SCREEN", noParams},
	RSP_UNBLANK_SCREEN:              {"RSP_UNBLANK_SCREEN", noParams},
	RSP_GET_BATTERY_STATE:           {"RSP_GET_BATTERY_STATE", batteryFmt},
	RSP_GET_PERIPHERAL_ENABLED:      {"RSP_GET_PERIPHERAL_ENABLED", oneInt},
	RSP_GET_SCREEN_BLANKING_TIMEOUT: {"RSP_GET_SCREEN_BLANKING_TIMEOUT", oneInt},
	RSP_SET_SCREEN_BLANKING_TIMEOUT: {"RSP_SET_SCREEN_BLANKING_TIMEOUT", noParams},
	RSP_GET_LID_OPEN_STATE:          {"RSP_GET_LID_OPEN_STATE", oneInt},
	RSP_GET_SCREEN_BACKLIGHT_STATE:  {"RSP_GET_SCREEN_BACKLIGHT_STATE", oneInt},
	RSP_SET_SCREEN_BACKLIGHT_STATE:  {"RSP_SET_SCREEN_BACKLIGHT_STATE", noParams},
	RSP_GET_OLED_CONTROL:            {"RSP_GET_OLED_CONTROL", oneInt},
	RSP_SET_OLED_CONTROL:            {"RSP_SET_OLED_CONTROL", noParams},
	RSP_GET_OLED_SPI_BUS:            {"RSP_GET_OLED_SPI_BUS", oneInt},
	RSP_SET_OLED_SPI_BUS:            {"RSP_SET_OLED_SPI_BUS", noParams},

	PUB_BRIGHTNESS_CHANGED:        {"PUB_BRIGHTNESS_CHANGED", oneInt},
	PUB_PERIPHERAL_CONNECTED:      {"PUB_PERIPHERAL_CONNECTED", oneInt},
	PUB_PERIPHERAL_DISCONNECTED:   {"PUB_PERIPHERAL_DISCONNECTED", oneInt},
	PUB_SHUTDOWN_REQUESTED:        {"PUB_SHUTDOWN_REQUESTED", noParams},
	PUB_REBOOT_REQUIRED:           {"PUB_REBOOT_REQUIRED", noParams},
	PUB_BATTERY_STATE_CHANGED:     {"PUB_BATTERY_STATE_CHANGED", batteryFmt},
	PUB_SCREEN_BLANKED:            {"PUB_SCREEN_BLANKED", noParams},
	PUB_SCREEN_UNBLANKED:          {"PUB_SCREEN_UNBLANKED", noParams},
	PUB_LOW_BATTERY_WARNING:       {"PUB_LOW_BATTERY_WARNING", noParams},
	PUB_CRITICAL_BATTERY_WARNING:  {"PUB_CRITICAL_BATTERY_WARNING", noParams},
	PUB_LID_CLOSED:                {"PUB_LID_CLOSED", noParams},
	PUB_LID_OPENED:                {"PUB_LID_OPENED", noParams},
	PUB_UNSUPPORTED_HARDWARE:      {"PUB_UNSUPPORTED_HARDWARE", noParams},
	PUB_V3_BUTTON_UP_PRESSED:      {"PUB_V3_BUTTON_UP_PRESSED", noParams},
	PUB_V3_BUTTON_UP_RELEASED:     {"PUB_V3_BUTTON_UP_RELEASED", noParams},
	PUB_V3_BUTTON_DOWN_PRESSED:    {"PUB_V3_BUTTON_DOWN_PRESSED", noParams},
	PUB_V3_BUTTON_DOWN_RELEASED:   {"PUB_V3_BUTTON_DOWN_RELEASED", noParams},
	PUB_V3_BUTTON_SELECT_PRESSED:  {"PUB_V3_BUTTON_SELECT_PRESSED", noParams},
	PUB_V3_BUTTON_SELECT_RELEASED: {"PUB_V3_BUTTON_SELECT_RELEASED", noParams},
	PUB_V3_BUTTON_CANCEL_PRESSED:  {"PUB_V3_BUTTON_CANCEL_PRESSED", noParams},
	PUB_V3_BUTTON_CANCEL_RELEASED: {"PUB_V3_BUTTON_CANCEL_RELEASED", noParams},
	PUB_KEYBOARD_DOCKED:           {"PUB_KEYBOARD_DOCKED", noParams},
	PUB_KEYBOARD_UNDOCKED:         {"PUB_KEYBOARD_UNDOCKED", noParams},
	PUB_KEYBOARD_CONNECTED:        {"PUB_KEYBOARD_CONNECTED", noParams},
	PUB_FAILED_KEYBOARD_CONNECT:   {"PUB_FAILED_KEYBOARD_CONNECT", noParams},
	PUB_OLED_CONTROL_CHANGED:      {"PUB_OLED_CONTROL_CHANGED", oneInt},
	PUB_OLED_SPI_BUS_CHANGED:      {"PUB_OLED_SPI_BUS_CHANGED", oneInt},
	PUB_PITOPD_READY:              {"PUB_PITOPD_READY", noParams},
}

var ErrMalformedMessage = errors.New("malformed message")

func (id MessageId) String() string {
	if entry, ok := catalogue[id]; ok {
		return entry.name
	}
	return "UNKNOWN_MESSAGE_" + strconv.Itoa(int(id))
}

// Message is a decoded hub message.
type Message struct {
	Id     MessageId
	Params []string
}

// NewMessage builds a message and checks its parameters against the
// declared types of id.
func NewMessage(id MessageId, params ...interface{}) (Message, error) {
	m := Message{Id: id}
	for _, p := range params {
		m.Params = append(m.Params, fmt.Sprint(p))
	}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

// ParseMessage decodes and validates a wire string.
func ParseMessage(raw string) (Message, error) {
	parts := strings.Split(raw, "|")
	id, err := strconv.Atoi(parts[0])
	if err != nil {
		return Message{}, fmt.Errorf("%w: message id %q is not an integer", ErrMalformedMessage, parts[0])
	}
	m := Message{Id: MessageId(id), Params: parts[1:]}
	if err := m.Validate(); err != nil {
		return Message{}, err
	}
	return m, nil
}

func (m Message) Validate() error {
	entry, ok := catalogue[m.Id]
	if !ok {
		return fmt.Errorf("%w: unknown message id %d", ErrMalformedMessage, int(m.Id))
	}
	if len(m.Params) != len(entry.params) {
		return fmt.Errorf("%w: %s expects %d parameters, got %d", ErrMalformedMessage, entry.name, len(entry.params), len(m.Params))
	}
	for i, t := range entry.params {
		switch t {
		case INT_PARAM:
			if _, err := strconv.Atoi(m.Params[i]); err != nil {
				return fmt.Errorf("%w: %s parameter %d is not an integer", ErrMalformedMessage, entry.name, i)
			}
		case FLOAT_PARAM:
			if _, err := strconv.ParseFloat(m.Params[i], 64); err != nil {
				return fmt.Errorf("%w: %s parameter %d is not a float", ErrMalformedMessage, entry.name, i)
			}
		}
	}
	return nil
}

// Encode returns the wire form.
func (m Message) Encode() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(int(m.Id)))
	for _, p := range m.Params {
		sb.WriteByte('|')
		sb.WriteString(p)
	}
	return sb.String()
}

// String returns the message name followed by its parameters.
func (m Message) String() string {
	return strings.Join(append([]string{m.Id.String()}, m.Params...), " ")
}

// IntParam returns parameter i as an integer.
func (m Message) IntParam(i int) (int, error) {
	if i < 0 || i >= len(m.Params) {
		return 0, fmt.Errorf("%w: %s has no parameter %d", ErrMalformedMessage, m.Id, i)
	}
	return strconv.Atoi(m.Params[i])
}
