package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/akmonengine/apeiron"
	"github.com/akmonengine/apeiron/geometry"
	"github.com/akmonengine/apeiron/physinterface"
	"github.com/go-gl/mathgl/mgl64"
)

// SetupScene creates a ground plane, a tilted cube falling on it and two balls tied by a spring
func SetupScene(ctx context.Context, scene *physinterface.Scene) (cube physinterface.BodyID, err error) {
	ground, err := scene.CreateActor(physinterface.ActorParams{Static: true})
	if err != nil {
		return 0, err
	}
	_, err = scene.AddGeometry(ctx, ground, physinterface.GeometryParams{
		Planes: []physinterface.PlaneElement{{Normal: mgl64.Vec3{0, 0, 1}}},
	})
	if err != nil {
		return 0, err
	}

	cube, err = scene.CreateActor(physinterface.ActorParams{
		Pose: geometry.NewTransformAt(mgl64.Vec3{-5, -5, 5}, mgl64.QuatRotate(0.3, mgl64.Vec3{1, 1, 0}.Normalize())),
	})
	if err != nil {
		return 0, err
	}
	_, err = scene.AddGeometry(ctx, cube, physinterface.GeometryParams{
		Boxes: []physinterface.BoxElement{{Extent: mgl64.Vec3{3, 3, 3}}},
	})
	if err != nil {
		return 0, err
	}
	if err := scene.UpdateMassFromGeometry(cube, 1); err != nil {
		return 0, err
	}

	var balls [2]physinterface.BodyID
	for k := range balls {
		balls[k], err = scene.CreateActor(physinterface.ActorParams{
			Pose: geometry.NewTransformAt(mgl64.Vec3{5, float64(k) * 3, 4}, mgl64.QuatIdent()),
		})
		if err != nil {
			return 0, err
		}
		_, err = scene.AddGeometry(ctx, balls[k], physinterface.GeometryParams{
			Spheres: []physinterface.SphereElement{{Radius: 0.5}},
		})
		if err != nil {
			return 0, err
		}
	}
	if _, err := scene.AddSpringConstraint(balls[0], balls[1]); err != nil {
		return 0, err
	}

	return cube, nil
}

func main() {
	configPath := flag.String("config", "", "YAML solver configuration")
	frames := flag.Int("frames", 200, "number of frames to simulate")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	config := apeiron.DefaultConfig()
	if *configPath != "" {
		var err error
		if config, err = apeiron.LoadConfig(*configPath); err != nil {
			logger.Error("loading configuration", slog.Any("error", err))
			os.Exit(1)
		}
	}

	scene := physinterface.NewScene(config, logger)
	cube, err := SetupScene(context.Background(), scene)
	if err != nil {
		logger.Error("building scene", slog.Any("error", err))
		os.Exit(1)
	}

	for _, eventType := range []apeiron.EventType{apeiron.COLLISION_ENTER, apeiron.COLLISION_EXIT, apeiron.ON_SLEEP, apeiron.ON_WAKE} {
		scene.Subscribe(eventType, func(event physinterface.ActorEvent) {
			logger.Info("event", slog.String("type", event.Type.String()),
				slog.Uint64("bodyA", uint64(event.BodyA)), slog.Uint64("bodyB", uint64(event.BodyB)))
		})
	}

	const dt float64 = 1.0 / 60.0
	gravity := mgl64.Vec3{0, 0, -9.81}

	for frame := 0; frame < *frames; frame++ {
		if err := scene.SetUpForFrame(gravity, dt); err != nil {
			logger.Error("frame setup", slog.Any("error", err))
			os.Exit(1)
		}
		scene.StartFrame()

		pose, _ := scene.GetGlobalPose(cube)
		velocity, _ := scene.GetLinearVelocity(cube)
		sleeping, _ := scene.IsSleeping(cube)
		fmt.Printf("--- FRAME %d ---\n", frame+1)
		fmt.Printf("  Cube position: %v\n", pose.Position)
		fmt.Printf("  Cube velocity: %v (len=%.3f)\n", velocity, velocity.Len())
		fmt.Printf("  Sleeping: %v, awake bodies: %d\n", sleeping, scene.GetNumAwakeBodies())
	}

	fmt.Println("Simulation finished")
}
