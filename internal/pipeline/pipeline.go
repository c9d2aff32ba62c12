// Package pipeline sequences the stages that turn an input .apk or
// .apks bundle into a debuggable, re-signed .apk: load, optional
// bundle merge, manifest patch, strip stale signature artifacts,
// re-sign, serialize.
package pipeline

import (
	"context"

	"go.uber.org/zap"

	"apkdebug/internal/apkerr"
	"apkdebug/internal/archive"
	"apkdebug/internal/axml"
	"apkdebug/internal/bundle"
	"apkdebug/internal/identity"
	"apkdebug/internal/jarsign"
	"apkdebug/internal/logevt"
)

const manifestPath = "AndroidManifest.xml"

// State names the pipeline's position for logging and tests; it is
// not branched on by callers.
type State string

const (
	StateIdle            State = "idle"
	StateLoaded          State = "loaded"
	StateMerged          State = "merged"
	StateManifestParsed  State = "manifest_parsed"
	StateManifestPatched State = "manifest_patched"
	StateStripped        State = "stripped"
	StateSigned          State = "signed"
	StateEmitted         State = "emitted"
)

// Input is everything Run needs to patch and re-sign one archive.
type Input struct {
	Data        []byte
	Identity    *identity.Identity
	Concurrency int // worker bound for jarsign's per-entry digesting
}

// Result is what a caller gets back: the patched, re-signed archive
// bytes plus the facts extracted from its manifest and the log
// stream collected along the way.
type Result struct {
	Output []byte
	Facts  axml.ManifestFacts
	Logs   []logevt.Event

	// State is the last stage the pipeline completed. On success this
	// is always StateEmitted; on an error it marks where the run stopped.
	State        State
	WasBundle    bool
	PatchResult  axml.PatchResult
	UsedFallback bool // true if the manifest had to be byte-scanned rather than parsed
}

// Run executes the full patch pipeline. It checks ctx at every stage
// boundary, returning apkerr.Cancelled promptly rather than partway
// through a stage.
func Run(ctx context.Context, in Input) (Result, error) {
	logs := logevt.NewStream()
	defer logs.Sync()

	if in.Identity == nil {
		return Result{State: StateIdle}, apkerr.InputInvalid
	}
	concurrency := in.Concurrency
	if concurrency < 1 {
		concurrency = 4
	}

	a, err := archive.Load(in.Data)
	if err != nil {
		return Result{State: StateIdle}, err
	}
	logs.Info("loaded input archive", zap.Int("entries", len(a.Enumerate())))
	state := StateLoaded

	if err := checkDone(ctx); err != nil {
		return result(logs, state, false, axml.PatchResult{}, false, axml.ManifestFacts{}), err
	}

	wasBundle := bundle.IsBundle(a)
	if wasBundle {
		merged, err := bundle.Merge(a)
		if err != nil {
			return result(logs, state, wasBundle, axml.PatchResult{}, false, axml.ManifestFacts{}), err
		}
		a = merged
		state = StateMerged
		logs.Info("merged bundle splits", zap.Int("entries", len(a.Enumerate())))
	}

	if err := checkDone(ctx); err != nil {
		return result(logs, state, wasBundle, axml.PatchResult{}, false, axml.ManifestFacts{}), err
	}

	manifestRaw, err := a.Read(manifestPath)
	if err != nil {
		return result(logs, state, wasBundle, axml.PatchResult{}, false, axml.ManifestFacts{}), err
	}

	var (
		facts        axml.ManifestFacts
		patchResult  axml.PatchResult
		usedFallback bool
		patchedBuf   []byte
	)

	doc, parseErr := axml.Parse(manifestRaw)
	if parseErr != nil {
		logs.Warn("manifest parse failed, falling back to byte scan", zap.Error(parseErr))
		scanned, applied := axml.ScanAndPatch(manifestRaw)
		usedFallback = true
		patchedBuf = scanned
		patchResult = axml.PatchResult{Strategy: "byte-scan", BytesPatched: 0}
		if applied {
			patchResult.BytesPatched = 4
		} else {
			logs.Warn("byte-scan fallback found nothing to patch")
		}
		// facts are unavailable without a successful parse; leave the
		// zero value rather than guessing.
	} else {
		state = StateManifestParsed
		facts, err = doc.Facts()
		if err != nil {
			return result(logs, state, wasBundle, patchResult, usedFallback, facts), err
		}
		logs.Info("parsed manifest", zap.String("package", facts.Package), zap.Bool("debuggable", facts.IsDebuggable))

		if facts.IsDebuggable {
			logs.Info("manifest already debuggable, no patch necessary")
			patchedBuf = manifestRaw
		} else {
			patchedBuf, patchResult, err = doc.SetDebuggable(manifestRaw)
			if err != nil {
				return result(logs, state, wasBundle, patchResult, usedFallback, facts), err
			}
			logs.Info("patched manifest", zap.String("strategy", patchResult.Strategy), zap.Int("bytesPatched", patchResult.BytesPatched))
		}
	}
	a.Put(manifestPath, patchedBuf)
	state = StateManifestPatched

	if err := checkDone(ctx); err != nil {
		return result(logs, state, wasBundle, patchResult, usedFallback, facts), err
	}

	a.RemoveMatching(jarsign.IsSignatureArtifact)
	state = StateStripped
	logs.Info("stripped stale signature artifacts")

	if err := checkDone(ctx); err != nil {
		return result(logs, state, wasBundle, patchResult, usedFallback, facts), err
	}

	// No further mutation of a happens between Sign and Serialize below,
	// so the entry set jarsign digests is exactly what gets serialized.
	if err := jarsign.Sign(a, in.Identity, concurrency); err != nil {
		return result(logs, state, wasBundle, patchResult, usedFallback, facts), err
	}
	state = StateSigned
	logs.Info("signed archive")

	out, err := a.Serialize()
	if err != nil {
		return result(logs, state, wasBundle, patchResult, usedFallback, facts), err
	}
	state = StateEmitted
	logs.Success("emitted patched archive", zap.Int("bytes", len(out)))

	return Result{
		Output:       out,
		Facts:        facts,
		Logs:         logs.Events(),
		State:        state,
		WasBundle:    wasBundle,
		PatchResult:  patchResult,
		UsedFallback: usedFallback,
	}, nil
}

func checkDone(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return apkerr.Cancelled
	default:
		return nil
	}
}

func result(logs *logevt.Stream, state State, wasBundle bool, pr axml.PatchResult, fallback bool, facts axml.ManifestFacts) Result {
	return Result{
		Facts:        facts,
		Logs:         logs.Events(),
		State:        state,
		WasBundle:    wasBundle,
		PatchResult:  pr,
		UsedFallback: fallback,
	}
}
