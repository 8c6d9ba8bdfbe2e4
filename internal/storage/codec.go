package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"genopt/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp fills in the current schema and codec versions.
func Stamp(record model.ExperimentRecord) model.ExperimentRecord {
	record.VersionedRecord = model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
	return record
}

func EncodeExperiment(record model.ExperimentRecord) ([]byte, error) {
	if err := checkVersion(record.VersionedRecord); err != nil {
		return nil, err
	}
	return json.Marshal(record)
}

func DecodeExperiment(data []byte) (model.ExperimentRecord, error) {
	var record model.ExperimentRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.ExperimentRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.ExperimentRecord{}, err
	}
	return record, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, v.SchemaVersion, v.CodecVersion)
	}
	return nil
}
