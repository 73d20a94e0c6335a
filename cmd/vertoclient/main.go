package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mgcomm/verto/internal/adapters/ws"
	"github.com/mgcomm/verto/internal/config"
	"github.com/mgcomm/verto/internal/domain"
	"github.com/mgcomm/verto/internal/rtc"
	"github.com/mgcomm/verto/internal/session"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var (
		number = flag.String("number", "", "conference number to dial")
		name   = flag.String("name", "", "caller display name")
		host   = flag.Bool("host", false, "join as host")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	rest := config.NewRestClient(cfg.APIURL)
	iceServers := cfg.ICEServers
	if cfg.APIURL != "" {
		if servers, err := rest.IceServers(); err != nil {
			log.Warn().Err(err).Msg("ice server fetch failed, using configured servers")
		} else {
			iceServers = servers
		}
	}

	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus}, "audio", "mic")
	if err != nil {
		log.Fatal().Err(err).Msg("audio track")
	}
	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeH264}, "video", "cam")
	if err != nil {
		log.Fatal().Err(err).Msg("video track")
	}

	engines := func(receiveStream bool, cb rtc.Callbacks) (rtc.Engine, error) {
		return rtc.NewPeer(rtc.PeerConfig{
			ICEServers:    iceServers,
			LocalTracks:   []webrtc.TrackLocal{audio, video},
			ReceiveStream: receiveStream,
		}, cb)
	}

	socket := ws.NewSocket(cfg.ServerURL)
	sess := session.New(cfg, socket, engines, rest, session.Params{
		CallerName:     *name,
		RealNumber:     *number,
		IsHost:         *host,
		PreferredCodec: cfg.PreferredCodec,
	})

	bus := sess.Notification()
	bus.CallStateChange.Subscribe(func(ch domain.StateChange) {
		log.Info().Stringer("from", ch.Previous).Stringer("to", ch.Current).Msg("call state")
	})
	bus.BootstrappedParticipants.Subscribe(func(ps []domain.Participant) {
		log.Info().Int("count", len(ps)).Msg("conference roster")
	})
	bus.AddedParticipant.Subscribe(func(p domain.Participant) {
		log.Info().Str("name", p.DisplayName).Msg("participant joined")
	})
	bus.RemovedParticipant.Subscribe(func(p domain.Participant) {
		log.Info().Str("name", p.DisplayName).Msg("participant left")
	})
	bus.ChatMessageToAll.Subscribe(func(m domain.ChatMessage) {
		log.Info().Str("from", m.FromName).Str("text", m.Message).Msg("chat")
	})
	bus.Reconnecting.Subscribe(func(struct{}) {
		log.Warn().Msg("signaling lost, reconnecting")
	})

	if err := sess.Connect(); err != nil {
		log.Fatal().Err(err).Msg("connect failed")
	}
	log.Info().Str("caller", sess.CallerName()).Msg("session started")

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	sess.Hangup()
	time.Sleep(500 * time.Millisecond)
	sess.Disconnect()
	log.Info().Msg("Session exited gracefully")
}
