package ir

import (
	"errors"
	"fmt"
)

// GroupMode describes how the participants of a collective are grouped and
// which identity (replica or partition) its routing ids refer to.
type GroupMode int

const (
	CrossReplica GroupMode = iota
	CrossPartition
	CrossReplicaAndPartition
	FlattenedID
)

func (m GroupMode) String() string {
	switch m {
	case CrossReplica:
		return "cross_replica"
	case CrossPartition:
		return "cross_partition"
	case CrossReplicaAndPartition:
		return "cross_replica_and_partition"
	case FlattenedID:
		return "flattened_id"
	default:
		panic("invalid group mode")
	}
}

var (
	// ErrInvalidGroupModeCombination is returned when global device ids are
	// requested on a collective without a channel id.
	ErrInvalidGroupModeCombination = errors.New(
		"invalid combination of has_channel_id and use_global_device_ids")

	// ErrNotCollective is returned when a group mode is requested for an
	// instruction that does not communicate.
	ErrNotCollective = errors.New("instruction is not a collective")
)

// GetCollectiveOpGroupMode derives the group mode of a collective from
// whether it carries a channel id and from the optional global device id
// flag. A nil flag means the collective does not have the attribute.
func GetCollectiveOpGroupMode(
	hasChannelID bool,
	useGlobalDeviceIDs *bool,
) (GroupMode, error) {
	if useGlobalDeviceIDs != nil && *useGlobalDeviceIDs && !hasChannelID {
		return 0, ErrInvalidGroupModeCombination
	}

	if !hasChannelID {
		return CrossReplica, nil
	}

	if useGlobalDeviceIDs == nil {
		return CrossPartition, nil
	}

	if !*useGlobalDeviceIDs {
		return CrossReplicaAndPartition, nil
	}

	return FlattenedID, nil
}

// CollectiveGroupMode derives the group mode of a collective instruction.
func (i *Instruction) CollectiveGroupMode(useGlobalDeviceIDs *bool) (GroupMode, error) {
	if !i.opcode.IsCollective() {
		return 0, fmt.Errorf("%s (%s): %w", i.name, i.opcode, ErrNotCollective)
	}

	if i.hasChannelID && i.channelID <= 0 {
		return 0, fmt.Errorf("%s: channel id must be positive, got %d",
			i.name, i.channelID)
	}

	mode, err := GetCollectiveOpGroupMode(i.hasChannelID, useGlobalDeviceIDs)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", i.name, err)
	}

	return mode, nil
}
