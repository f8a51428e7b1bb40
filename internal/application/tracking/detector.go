package tracking

import (
	"crypto/md5"
	"encoding/hex"
	"strings"

	"github.com/1128026Go/Arconte-sub000/internal/domain/caserecord"
	"github.com/1128026Go/Arconte-sub000/internal/infrastructure/ingest"
)

// Fingerprint derives the stable content hash of one act.  The four fields
// are joined verbatim; two acts differing only in casing or whitespace are
// different acts as far as detection is concerned.
func Fingerprint(date, actType, description, documentURL string) string {
	sum := md5.Sum([]byte(strings.Join([]string{date, actType, description, documentURL}, "|")))
	return hex.EncodeToString(sum[:])
}

// actFingerprint fingerprints an incoming payload act.  The date is
// normalized first so the same act never re-fires because the portal switched
// date formats between crawls.
func actFingerprint(r ingest.Record) string {
	return Fingerprint(
		normalizeDate(r.First("date", "fecha")),
		r.First("type", "tipo"),
		r.First("title", "descripcion", "description"),
		r.First("documento_url", "document_url"),
	)
}

func storedFingerprint(act caserecord.ProceduralAct) string {
	return Fingerprint(formatDate(act.Date), act.Type, act.Description, act.DocumentURL)
}

// DetectNewActs returns the incoming acts whose fingerprint matches no stored
// act.  Pure function: no I/O, deterministic, order-preserving.
func DetectNewActs(incoming []ingest.Record, stored []caserecord.ProceduralAct) []ingest.Record {
	known := make(map[string]struct{}, len(stored)*2)
	for _, act := range stored {
		known[storedFingerprint(act)] = struct{}{}
		// Acts persisted from earlier payloads keep their original unique
		// key, which for hash-keyed acts is the fingerprint itself.
		if act.UniqueKey != "" {
			known[act.UniqueKey] = struct{}{}
		}
	}

	var fresh []ingest.Record
	for _, r := range incoming {
		fp := actFingerprint(r)
		if _, ok := known[fp]; ok {
			continue
		}
		if key := r.First("uniq_key", "hash"); key != "" {
			if _, ok := known[key]; ok {
				continue
			}
		}
		fresh = append(fresh, r)
	}
	return fresh
}

// UniqueKeyFor resolves the upsert key of a payload act: the upstream key
// when the payload carries one, the content fingerprint otherwise.
func UniqueKeyFor(r ingest.Record) string {
	if key := r.First("uniq_key", "hash"); key != "" {
		return key
	}
	return actFingerprint(r)
}
