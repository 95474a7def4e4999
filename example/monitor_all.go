package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/leandrodaf/midispy/internal/logger"
	"github.com/leandrodaf/midispy/sdk/contracts"
	"github.com/leandrodaf/midispy/sdk/midispy"
	gomidi "gitlab.com/gomidi/midi/v2"
)

func main() {
	log := logger.NewZapLogger()

	// Clock and active-sensing traffic would flood the console.
	filter, err := contracts.NewFilter(contracts.FilterConfig{
		ExcludeTypes: []contracts.MessageType{contracts.TypeTimingClock, contracts.TypeActiveSensing},
	})
	if err != nil {
		log.Error("Failed to build message filter", log.Field().Error("error", err))
		return
	}

	session, err := midispy.NewInputSession(
		func(messages []contracts.Message, endpoint contracts.Endpoint) {
			for _, m := range messages {
				fmt.Printf("[%s] %s | %s\n", endpoint.Name, m, gomidi.Message(m.Data))
			}
		},
		contracts.WithLogger(log),
		contracts.WithLogLevel(contracts.InfoLevel),
		contracts.WithClientName("midispy monitor"),
		contracts.WithFilter(filter),
	)
	if err != nil {
		log.Error("Failed to create MIDI session", log.Field().Error("error", err))
		return
	}
	defer session.Close()

	endpoints, err := session.Endpoints()
	if err != nil || len(endpoints) == 0 {
		log.Error("No MIDI sources found or error listing them", log.Field().Error("error", err))
		return
	}

	for _, endpoint := range endpoints {
		if err := session.Connect(endpoint); err != nil {
			log.Warn("Failed to connect to endpoint",
				log.Field().String("endpointName", endpoint.Name),
				log.Field().Error("error", err))
			continue
		}
		fmt.Printf("Monitoring: %s\n", endpoint.Name)
	}

	fmt.Println("Capturing MIDI messages... Press Ctrl+C to exit.")
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	<-interrupt
}
