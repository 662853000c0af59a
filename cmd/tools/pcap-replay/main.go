//go:build pcap
// +build pcap

// Command pcap-replay feeds captured statistics traffic from a PCAP file
// through the 3A loop and prints the resulting decisions.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/gmykhailiuta/libcamera/internal/ipa/aiq"
	"github.com/gmykhailiuta/libcamera/internal/ipa/engine"
	"github.com/gmykhailiuta/libcamera/internal/ipa/iaiq"
	"github.com/gmykhailiuta/libcamera/internal/ipa/params"
	"github.com/gmykhailiuta/libcamera/internal/pipeline"
)

func main() {
	file := flag.String("f", "", "PCAP file to replay")
	port := flag.Int("port", 9020, "UDP port the statistics were captured on")
	tuning := flag.String("tuning", "", "tuning blob path (optional)")
	flag.Parse()

	if *file == "" {
		log.Fatal("a PCAP file is required (-f)")
	}

	session := aiq.New(aiq.Config{
		TuningPath: *tuning,
		NewEngine:  engine.New,
		OnDecision: func(frame uint32, d *iaiq.Decision) {
			log.Printf("frame %d: exposure=%dus again=%.3f dgain=%.3f r=%.3f b=%.3f cct=%.0fK",
				frame, d.ExposureUs, d.AnalogGain, d.DigitalGain, d.GainR, d.GainB, d.CCT)
		},
	})
	if err := session.Init(); err != nil {
		log.Fatalf("failed to initialise session: %v", err)
	}
	defer session.Close()

	loop := pipeline.NewLoop(pipeline.LoopConfig{
		Session: session,
		Depth:   4,
		Sink:    func(frame uint32, buf *params.Buffer) {},
	})

	if err := pipeline.ReplayPCAPFile(context.Background(), *file, *port, loop); err != nil {
		log.Fatalf("replay failed: %v", err)
	}
	log.Printf("✓ Replayed %d frames", session.FrameCount())
}
