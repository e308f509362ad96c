package rtree

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dannyswat/fsrtree/rtree/geometry"
	"github.com/dannyswat/fsrtree/rtree/splittype"
)

// On-disk layout. Every integer is little endian.
//
//	header (headerSize bytes, at offset 0)
//	  0  magic        uint32
//	  4  version      uint16
//	  6  dimension    uint16
//	  8  maxElements  uint32
//	 12  split        uint8
//	 16  root         int64
//	 24  elements     int64
//	 32  nextID       int64
//	 40  freeHead     int64
//	 48  storeID      [16]byte
//	 64  crsLength    uint16
//	 66  crs          [crsLength]byte
//
//	record id (recordSize bytes, at headerSize + (id-1)*recordSize)
//	  0  kind         uint8 (0 marks a freed record)
//	  1  flags        uint8
//	  4  childCount   uint32
//	  8  parent       int64
//	 16  sibling      int64 (next free record when freed)
//	 24  firstChild   int64
//	 32  boundary     [2*dimension]float64
const (
	fileMagic   uint32 = 0x45525452
	fileVersion uint16 = 1
	headerSize         = 512
	recordFixed        = 32

	flagHasBoundary = 1 << 0
)

var errBadHeader = errors.New("not an r-tree index file")

var kindCodes = map[NodeKind]byte{InternalNode: 1, LeafNode: 2, DataNode: 3}

var codeKinds = map[byte]NodeKind{1: InternalNode, 2: LeafNode, 3: DataNode}

var splitCodes = map[splittype.SplitType]byte{splittype.Linear: 1, splittype.Quadratic: 2}

var codeSplits = map[byte]splittype.SplitType{1: splittype.Linear, 2: splittype.Quadratic}

// FileNodeStore keeps the tree in a single file of fixed-size node records.
// Each WriteNode is a single WriteAt of one whole record. The header is
// rewritten whenever the root changes and by Flush and Close; only Flush and
// Close sync the file.
type FileNodeStore struct {
	treeMeta
	file       File
	path       string
	recordSize int64
	closed     bool
	log        logrus.FieldLogger
}

var _ NodeStore = (*FileNodeStore)(nil)

// OpenFileNodeStore opens the index file dir/fileName, creating it with cfg
// when it does not exist yet. An existing file keeps the configuration stored
// in its header and cfg is ignored.
func OpenFileNodeStore(fp IFileProvider, dir, fileName string, cfg StoreConfig, logger logrus.FieldLogger) (*FileNodeStore, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	path := filepath.Join(dir, fileName)
	exists, err := fp.FileExists(dir, fileName)
	if err != nil {
		return nil, storeFailure("open "+path, NoNode, err)
	}
	if !exists {
		cfg = cfg.withDefaults()
		if err := cfg.validate(); err != nil {
			return nil, err
		}
	}
	if err := fp.CreateDirectory(dir); err != nil {
		return nil, storeFailure("open "+path, NoNode, err)
	}
	f, err := fp.OpenFile(dir, fileName)
	if err != nil {
		return nil, storeFailure("open "+path, NoNode, err)
	}
	s := &FileNodeStore{
		file: f,
		path: path,
		log:  logger.WithField("store", path),
	}
	if exists {
		if err := s.readHeader(); err != nil {
			f.Close()
			return nil, err
		}
		s.log.WithFields(logrus.Fields{
			"store_id": s.StoreID,
			"elements": s.Elements,
		}).Info("opened index file")
	} else {
		s.treeMeta = newTreeMeta(cfg)
		if err := s.Flush(); err != nil {
			f.Close()
			return nil, err
		}
		s.log.WithField("store_id", s.StoreID).Info("created index file")
	}
	s.recordSize = int64(recordFixed + 16*s.Dimension())
	return s, nil
}

func (s *FileNodeStore) offset(id NodeID) int64 {
	return headerSize + int64(id-1)*s.recordSize
}

func (s *FileNodeStore) inRange(id NodeID) bool {
	return id > NoNode && id < s.NextID
}

// live fails with ErrNotFound unless id names an allocated, unfreed record.
func (s *FileNodeStore) live(id NodeID) error {
	if !s.inRange(id) {
		return notFound(id)
	}
	code, _, err := s.readRecord(id)
	if err != nil {
		return err
	}
	if code == 0 {
		return notFound(id)
	}
	return nil
}

func (s *FileNodeStore) CreateNode(boundary geometry.Box, kind NodeKind, parent, sibling, child NodeID) (*Node, error) {
	if s.closed {
		return nil, ErrClosed
	}
	n, err := prepareNode(s.ReadNode, s.Dimension(), boundary, kind, parent, sibling, child)
	if err != nil {
		return nil, err
	}
	if s.FreeHead != NoNode {
		id := s.FreeHead
		_, freed, err := s.readRecord(id)
		if err != nil {
			return nil, err
		}
		n.ID = id
		s.FreeHead = freed.Sibling
	} else {
		n.ID = s.NextID
		s.NextID++
	}
	s.dirty = true
	if err := s.writeRecord(n, kindCodes[n.Kind]); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *FileNodeStore) ReadNode(id NodeID) (*Node, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if !s.inRange(id) {
		return nil, notFound(id)
	}
	code, n, err := s.readRecord(id)
	if err != nil {
		return nil, err
	}
	if code == 0 {
		return nil, notFound(id)
	}
	return n, nil
}

func (s *FileNodeStore) WriteNode(n *Node) error {
	if s.closed {
		return ErrClosed
	}
	code, ok := kindCodes[n.Kind]
	if !ok {
		return invalidArgument("unknown node kind %q", n.Kind)
	}
	if err := s.live(n.ID); err != nil {
		return err
	}
	return s.writeRecord(n, code)
}

func (s *FileNodeStore) FreeNode(id NodeID) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.live(id); err != nil {
		return err
	}
	tomb := &Node{ID: id, Sibling: s.FreeHead}
	if err := s.writeRecord(tomb, 0); err != nil {
		return err
	}
	s.FreeHead = id
	s.dirty = true
	return nil
}

func (s *FileNodeStore) Root() (*Node, error) {
	if s.treeMeta.Root == NoNode {
		return nil, nil
	}
	return s.ReadNode(s.treeMeta.Root)
}

func (s *FileNodeStore) SetRoot(n *Node) error {
	if s.closed {
		return ErrClosed
	}
	if n == nil {
		s.treeMeta.Root = NoNode
	} else {
		if err := s.live(n.ID); err != nil {
			return err
		}
		s.treeMeta.Root = n.ID
	}
	// A reopened file must never point at a root record that was freed since.
	s.dirty = true
	return s.writeHeader()
}

func (s *FileNodeStore) SetElementsNumber(n int) error {
	if s.closed {
		return ErrClosed
	}
	s.Elements = n
	s.dirty = true
	return nil
}

// Path returns the location of the index file.
func (s *FileNodeStore) Path() string {
	return s.path
}

// Flush writes the header when it changed and syncs the file.
func (s *FileNodeStore) Flush() error {
	if s.closed {
		return ErrClosed
	}
	if !s.dirty {
		return nil
	}
	if err := s.writeHeader(); err != nil {
		return err
	}
	if err := s.file.Sync(); err != nil {
		return storeFailure("sync", NoNode, err)
	}
	s.dirty = false
	return nil
}

func (s *FileNodeStore) Close() error {
	if s.closed {
		return nil
	}
	flushErr := s.Flush()
	s.closed = true
	if err := s.file.Close(); err != nil && flushErr == nil {
		return storeFailure("close", NoNode, err)
	}
	return flushErr
}

func (s *FileNodeStore) writeHeader() error {
	if _, err := s.file.WriteAt(s.encodeHeader(), 0); err != nil {
		return storeFailure("write header", NoNode, err)
	}
	return nil
}

func (s *FileNodeStore) encodeHeader() []byte {
	buf := make([]byte, headerSize)
	le := binary.LittleEndian
	le.PutUint32(buf[0:], fileMagic)
	le.PutUint16(buf[4:], fileVersion)
	le.PutUint16(buf[6:], uint16(s.Dimension()))
	le.PutUint32(buf[8:], uint32(s.MaxElements()))
	buf[12] = splitCodes[s.SplitChoice()]
	le.PutUint64(buf[16:], uint64(s.treeMeta.Root))
	le.PutUint64(buf[24:], uint64(s.Elements))
	le.PutUint64(buf[32:], uint64(s.NextID))
	le.PutUint64(buf[40:], uint64(s.FreeHead))
	copy(buf[48:64], s.StoreID[:])
	le.PutUint16(buf[64:], uint16(len(s.CRS())))
	copy(buf[66:], s.CRS())
	return buf
}

func (s *FileNodeStore) readHeader() error {
	buf := make([]byte, headerSize)
	if _, err := s.file.ReadAt(buf, 0); err != nil {
		return storeFailure("read header", NoNode, err)
	}
	le := binary.LittleEndian
	if le.Uint32(buf[0:]) != fileMagic {
		return storeFailure("read header", NoNode, errBadHeader)
	}
	if v := le.Uint16(buf[4:]); v != fileVersion {
		return storeFailure("read header", NoNode, fmt.Errorf("unsupported format version %d", v))
	}
	split, ok := codeSplits[buf[12]]
	if !ok {
		return storeFailure("read header", NoNode, fmt.Errorf("unknown split code %d", buf[12]))
	}
	crsLength := int(le.Uint16(buf[64:]))
	if crsLength > maxCRSLength {
		return storeFailure("read header", NoNode, errBadHeader)
	}
	storeID, err := uuid.FromBytes(buf[48:64])
	if err != nil {
		return storeFailure("read header", NoNode, err)
	}
	s.treeMeta = treeMeta{
		StoreID: storeID,
		Config: StoreConfig{
			MaxElements: int(le.Uint32(buf[8:])),
			Split:       split,
			Dimension:   int(le.Uint16(buf[6:])),
			CRS:         string(buf[66 : 66+crsLength]),
		},
		Root:     NodeID(le.Uint64(buf[16:])),
		Elements: int(le.Uint64(buf[24:])),
		NextID:   NodeID(le.Uint64(buf[32:])),
		FreeHead: NodeID(le.Uint64(buf[40:])),
	}
	return s.Config.validate()
}

func (s *FileNodeStore) writeRecord(n *Node, code byte) error {
	buf := make([]byte, s.recordSize)
	le := binary.LittleEndian
	buf[0] = code
	if n.Boundary != nil {
		if len(n.Boundary) != 2*s.Dimension() {
			return invalidArgument("boundary of node %d has %d values, want %d", n.ID, len(n.Boundary), 2*s.Dimension())
		}
		buf[1] = flagHasBoundary
		for i, v := range n.Boundary {
			le.PutUint64(buf[recordFixed+8*i:], math.Float64bits(v))
		}
	}
	le.PutUint32(buf[4:], uint32(n.ChildCount))
	le.PutUint64(buf[8:], uint64(n.Parent))
	le.PutUint64(buf[16:], uint64(n.Sibling))
	le.PutUint64(buf[24:], uint64(n.FirstChild))
	if _, err := s.file.WriteAt(buf, s.offset(n.ID)); err != nil {
		return storeFailure("write", n.ID, err)
	}
	return nil
}

func (s *FileNodeStore) readRecord(id NodeID) (byte, *Node, error) {
	buf := make([]byte, s.recordSize)
	if _, err := s.file.ReadAt(buf, s.offset(id)); err != nil {
		return 0, nil, storeFailure("read", id, err)
	}
	le := binary.LittleEndian
	n := &Node{
		ID:         id,
		ChildCount: int(le.Uint32(buf[4:])),
		Parent:     NodeID(le.Uint64(buf[8:])),
		Sibling:    NodeID(le.Uint64(buf[16:])),
		FirstChild: NodeID(le.Uint64(buf[24:])),
	}
	code := buf[0]
	if code == 0 {
		return 0, n, nil
	}
	kind, ok := codeKinds[code]
	if !ok {
		return 0, nil, storeFailure("read", id, fmt.Errorf("unknown kind code %d", code))
	}
	n.Kind = kind
	if buf[1]&flagHasBoundary != 0 {
		n.Boundary = make(geometry.Box, 2*s.Dimension())
		for i := range n.Boundary {
			n.Boundary[i] = math.Float64frombits(le.Uint64(buf[recordFixed+8*i:]))
		}
	}
	return code, n, nil
}
