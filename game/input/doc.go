// Package input turns directional key events into a serial stream of
// intents for a game engine.
//
// A Queue is a buffered channel drained by exactly one goroutine, so
// intents reach the engine one at a time and in arrival order. A Repeater
// sits in front of the queue and keeps a held direction firing:
//
//	q := input.NewQueue(16, func(dir engine.Direction) {
//		outcome := eng.Apply(dir)
//		...
//	})
//	go q.Run(ctx)
//
//	r := input.NewRepeater(q, 50*time.Millisecond)
//	r.Press(engine.Right)   // one intent now, then one every 50ms
//	r.Release(engine.Right) // no intent for Right after this returns
//
// Disconnecting clients should call ReleaseAll so no repeat task outlives
// its owner.
package input
