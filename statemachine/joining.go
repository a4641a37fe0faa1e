package statemachine

import (
	"github.com/sirupsen/logrus"

	"sectionrouting/chain"
	"sectionrouting/event"
	"sectionrouting/identity"
	"sectionrouting/location"
	"sectionrouting/messages"
	"sectionrouting/timer"
)

// Joining sends a JoinRequest to the elders named by eldersInfo and
// awaits NodeApproval.
type Joining struct {
	cfg             Config
	fullId          identity.FullId
	ns              NetworkService
	tm              *timer.Timer
	verifier        identity.Verifier
	eldersInfo      chain.EldersInfo
	relocatePayload *messages.RelocatePayload
	timeoutToken    timer.Token
}

// NewJoining sends the JoinRequest and schedules JOIN_TIMEOUT.
func NewJoining(cfg Config, fullId identity.FullId, ns NetworkService, tm *timer.Timer, verifier identity.Verifier, info chain.EldersInfo, payload *messages.RelocatePayload) *Joining {
	j := &Joining{
		cfg:             cfg,
		fullId:          fullId,
		ns:              ns,
		tm:              tm,
		verifier:        verifier,
		eldersInfo:      info,
		relocatePayload: payload,
	}
	j.timeoutToken = tm.Schedule(cfg.JoinTimeout)

	msg := messages.Message{
		Src: location.NodeSrc(fullId.Name()),
		Dst: location.Direct,
		Variant: messages.Variant{
			Tag:         messages.VariantJoinRequest,
			JoinRequest: &messages.JoinRequest{RelocatePayload: payload},
		},
	}
	bytes, err := messages.Encode(msg)
	if err != nil {
		logrus.Warnf("Joining: failed to encode JoinRequest: %v", err)
	} else {
		for _, elder := range info.Elders {
			if err := ns.Send(elder.ConnInfo, bytes); err != nil {
				logrus.Warnf("Joining: send JoinRequest to %s failed: %v", elder.ConnInfo.Addr, err)
			}
		}
	}
	return j
}

func (j *Joining) Name() string { return "Joining" }

func (j *Joining) HandleTransportEvent(ev TransportEvent, box event.Box) (State, error) {
	switch ev.Kind {
	case EvNewMessage:
		msg, err := decodeMessage(ev.Bytes)
		if err != nil {
			logrus.Debugf("Joining: dropping undecodable message: %v", err)
			return j, nil
		}
		return j.HandleMessage(&ev.From, msg, box)
	case EvConnectionFailure, EvConnectedTo, EvBootstrappedTo, EvBootstrapFailed:
		// A lost connection to one elder does not by itself abort
		// joining; JOIN_TIMEOUT governs overall progress.
		return j, nil
	}
	return j, nil
}

func (j *Joining) HandleTimeout(tok timer.Token, box event.Box) (State, error) {
	if tok != j.timeoutToken {
		return j, nil
	}
	logrus.Infof("Joining(%s): JOIN_TIMEOUT elapsed", j.fullId.Name())

	switch j.cfg.RestartPolicy {
	case RestartPolicyRebootstrap:
		return NewBootstrapping(j.cfg, j.fullId, j.ns, j.tm, j.verifier), nil
	default:
		box.SendEvent(event.RestartRequired())
		return &Terminated{}, nil
	}
}

func (j *Joining) HandleMessage(sender *chain.ConnectionInfo, msg messages.Message, box event.Box) (State, error) {
	if msg.Variant.Tag != messages.VariantNodeApproval {
		logrus.Debugf("Joining: dropping unexpected variant %d", msg.Variant.Tag)
		return j, nil
	}

	j.tm.Cancel(j.timeoutToken)

	kind := event.ConnectedFirst
	if j.relocatePayload != nil {
		kind = event.ConnectedRelocate
	}
	box.SendEvent(event.Connected(kind))

	return NewMember(j.cfg, j.fullId, j.ns, j.tm, j.verifier, j.eldersInfo), nil
}

func (j *Joining) HandleSendMessage(_ location.SrcLocation, _ location.DstLocation, _ []byte) error {
	return errNotBootstrapped
}
