package wireless

import "time"

// GATT identifiers advertised by the hub.
const (
	ServiceUUID      = "36bc0fe1-b007-4280-9ec6-b36c8bc98537"
	CommandCharUUID  = "a5845079-02e7-4f44-b679-02b90775abda"
	LevelsCharUUID   = "2a4fae81-0713-4e1f-a818-7ac56e4f13e4"
	DefaultLocalName = "VanColleague"
)

const (
	attValueRejected  = 0x80 // first application error code
	maxAdvertisedName = 29
)

// Options configure the GATT server.
type Options struct {
	LocalName      string
	NotifyInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.LocalName == "" {
		o.LocalName = DefaultLocalName
	}
	if len(o.LocalName) > maxAdvertisedName {
		o.LocalName = o.LocalName[:maxAdvertisedName]
	}
	if o.NotifyInterval <= 0 {
		o.NotifyInterval = DefaultNotifyInterval
	}
	return o
}
