package crate

import "fmt"

// FieldType is the wire type byte that starts a field descriptor.
type FieldType byte

const (
	TypeBool       FieldType = 'b'
	TypeContainer  FieldType = 'o'
	TypeContainerR FieldType = 'r'
	TypePath       FieldType = 'p'
	TypeText       FieldType = 't'
	TypeU16        FieldType = 's'
	TypeU32        FieldType = 'u'
)

func (t FieldType) String() string {
	switch t {
	case TypeBool:
		return "bool"
	case TypeContainer:
		return "container"
	case TypeContainerR:
		return "container-reversed"
	case TypePath:
		return "path"
	case TypeText:
		return "text"
	case TypeU16:
		return "u16"
	case TypeU32:
		return "u32"
	default:
		return fmt.Sprintf("type(%q)", byte(t))
	}
}

// FieldID names a known (type, name) combination. Fields absent from the
// table decode as FieldUnknown and keep their raw type and name.
type FieldID int

const (
	FieldUnknown FieldID = iota

	// Library database fields.
	FieldAlbum
	FieldArtist
	FieldBPM
	FieldBeatgridLocked
	FieldBitrate
	FieldComment
	FieldComposer
	FieldDateAdded
	FieldDateAddedText
	FieldFilePath
	FieldFileSize
	FieldFileTime
	FieldFileType
	FieldGenre
	FieldGrouping
	FieldKey
	FieldLabel
	FieldLength
	FieldMissing
	FieldSampleRate
	FieldSongTitle
	FieldTrack
	FieldVersion
	FieldYear

	// Crate fields.
	FieldSorting
	FieldReverseOrder
	FieldColumnTitle
	FieldColumnName
	FieldColumnWidth
	FieldTrackPath
)

type fieldKey struct {
	typ  FieldType
	name string
}

var fieldTable = map[FieldID]fieldKey{
	FieldAlbum:          {TypeText, "alb"},
	FieldArtist:         {TypeText, "art"},
	FieldBPM:            {TypeText, "bpm"},
	FieldBeatgridLocked: {TypeBool, "bgl"},
	FieldBitrate:        {TypeText, "bit"},
	FieldComment:        {TypeText, "com"},
	FieldComposer:       {TypeText, "cmp"},
	FieldDateAdded:      {TypeU32, "add"},
	FieldDateAddedText:  {TypeText, "add"},
	FieldFilePath:       {TypePath, "fil"},
	FieldFileSize:       {TypeText, "siz"},
	FieldFileTime:       {TypeU32, "tme"},
	FieldFileType:       {TypeText, "typ"},
	FieldGenre:          {TypeText, "gen"},
	FieldGrouping:       {TypeText, "grp"},
	FieldKey:            {TypeText, "key"},
	FieldLabel:          {TypeText, "lbl"},
	FieldLength:         {TypeText, "len"},
	FieldMissing:        {TypeBool, "mis"},
	FieldSampleRate:     {TypeText, "smp"},
	FieldSongTitle:      {TypeText, "sng"},
	FieldTrack:          {TypeContainer, "trk"},
	FieldVersion:        {TypeText, versionDescriptor},
	FieldYear:           {TypeText, "tyr"},
	FieldSorting:        {TypeContainer, "srt"},
	FieldReverseOrder:   {TypeBool, "rev"},
	FieldColumnTitle:    {TypeContainer, "vct"},
	FieldColumnName:     {TypeText, "vcn"},
	FieldColumnWidth:    {TypeText, "vcw"},
	FieldTrackPath:      {TypePath, "trk"},
}

var fieldNames = map[FieldID]string{
	FieldUnknown:        "Unknown",
	FieldAlbum:          "Album",
	FieldArtist:         "Artist",
	FieldBPM:            "BPM",
	FieldBeatgridLocked: "BeatgridLocked",
	FieldBitrate:        "Bitrate",
	FieldComment:        "Comment",
	FieldComposer:       "Composer",
	FieldDateAdded:      "DateAdded",
	FieldDateAddedText:  "DateAddedText",
	FieldFilePath:       "FilePath",
	FieldFileSize:       "FileSize",
	FieldFileTime:       "FileTime",
	FieldFileType:       "FileType",
	FieldGenre:          "Genre",
	FieldGrouping:       "Grouping",
	FieldKey:            "Key",
	FieldLabel:          "Label",
	FieldLength:         "Length",
	FieldMissing:        "Missing",
	FieldSampleRate:     "SampleRate",
	FieldSongTitle:      "SongTitle",
	FieldTrack:          "Track",
	FieldVersion:        "Version",
	FieldYear:           "Year",
	FieldSorting:        "Sorting",
	FieldReverseOrder:   "ReverseOrder",
	FieldColumnTitle:    "ColumnTitle",
	FieldColumnName:     "ColumnName",
	FieldColumnWidth:    "ColumnWidth",
	FieldTrackPath:      "TrackPath",
}

var fieldIDs = func() map[fieldKey]FieldID {
	m := make(map[fieldKey]FieldID, len(fieldTable))
	for id, k := range fieldTable {
		m[k] = id
	}
	return m
}()

func (id FieldID) String() string {
	if n, ok := fieldNames[id]; ok {
		return n
	}
	return fmt.Sprintf("FieldID(%d)", int(id))
}

// Type is the wire type of a known field.
func (id FieldID) Type() FieldType {
	return fieldTable[id].typ
}

// Name is the wire name of a known field.
func (id FieldID) Name() string {
	return fieldTable[id].name
}

func lookup(typ FieldType, name string) FieldID {
	if id, ok := fieldIDs[fieldKey{typ, name}]; ok {
		return id
	}
	return FieldUnknown
}
