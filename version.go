package ussdflow

// Version is the release of the builder. Release builds override it with
// -ldflags "-X github.com/aretw0/ussdflow.Version=...".
var Version = "0.4.0-dev"
