package fusion

// The policy table is the entire detection posture of the gateway.
// Every threshold and increment lives here, named, so the fusion
// arithmetic in Fuse stays free of magic numbers and the table can be
// tuned and tested on its own. Entropy values are raw bits per sampled
// byte (0-8), matching evidence.MeasureNoise.
const (
	// EntropySmoothMax: sampled entropy below this reads as "too
	// smooth" for a natural photo and adds SmoothPenalty.
	EntropySmoothMax = 4.5
	SmoothPenalty    = 0.5

	// EntropyNoiseMin: entropy above this reads as hyper-noise
	// (dithering, adversarial noise) and adds NoisePenalty.
	EntropyNoiseMin = 7.9
	NoisePenalty    = 0.5

	// VarianceFlatMax: byte variance below this reads as flat,
	// texture-less data and adds FlatPenalty.
	VarianceFlatMax = 100.0
	FlatPenalty     = 0.3

	// PhysicsCap bounds the summed statistical penalties. The physics
	// signal alone never claims certainty.
	PhysicsCap = 0.95

	// FormatAnomalyRisk applies when the buffer is PNG-signatured and
	// carries no camera metadata. PNG is the common synthetic output
	// container and camera photos normally retain EXIF; both absent is
	// strong (not certain) evidence.
	FormatAnomalyRisk = 0.95

	// WeakModelSignal / MissingOriginRisk: any model signal above
	// WeakModelSignal on an image with no provenance escalates the
	// final risk to at least MissingOriginRisk.
	WeakModelSignal   = 0.15
	MissingOriginRisk = 0.90

	// UncertaintyBelow / UncertaintyFloor: near-zero risk is never
	// reported for content lacking any provenance signal; it is raised
	// to the floor and attributed to MethodUncertaintyFloor.
	UncertaintyBelow = 0.10
	UncertaintyFloor = 0.45

	// SyntheticThreshold: risk strictly above this classifies as
	// SYNTHETIC.
	SyntheticThreshold = 0.5
)

// Detection method attribution labels.
const (
	MethodFormatAnomaly    = "FORMAT_ANOMALY"
	MethodPhysicsEngine    = "PHYSICS_ENGINE"
	MethodNeuralNetPrefix  = "NEURAL_NET:"
	MethodUncertain        = "UNCERTAIN"
	MethodUncertaintyFloor = "HEURISTIC_UNCERTAINTY"
	MethodMissingOrigin    = "+MISSING_ORIGIN"
)

// Component score keys, present in every verdict for auditability.
const (
	ComponentModel   = "model"
	ComponentPhysics = "physics"
	ComponentFormat  = "format"
)
