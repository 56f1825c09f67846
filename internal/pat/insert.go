package pat

import (
	"bytes"
	"unicode/utf8"
)

// Add inserts key if absent and returns its id; if key is already present
// the existing id is returned unchanged (spec.md §4.1 ADD semantics). In
// sis ("suffix indexed") mode every suffix of key is additionally spliced
// into the trie under the same id, so prefix/suffix search over the
// trailing edge of any stored key also finds it (spec.md glossary, "sis
// mode").
func (t *Trie) Add(key []byte) (ID, error) {
	if len(key) > MaxKey {
		return IDNil, errInvalidKey(len(key))
	}
	id, isNew, err := t.insertOne(key)
	if err != nil {
		return IDNil, err
	}
	if isNew && t.sis {
		// Suffixes are taken at rune boundaries, not raw byte offsets, so a
		// multi-byte character is never split across two indexed suffixes.
		for i := 0; i < len(key); {
			_, size := utf8.DecodeRune(key[i:])
			i += size
			if i >= len(key) {
				break
			}
			if _, _, err := t.insertWithID(key[i:], id); err != nil {
				return IDNil, err
			}
		}
	}
	return id, nil
}

// insertOne splices key into the trie with a freshly allocated id (or
// returns the existing one if key is already present).
func (t *Trie) insertOne(key []byte) (ID, bool, error) {
	if t.root == 0 {
		id := t.allocID()
		ref, err := t.newLeaf(key, id)
		if err != nil {
			return IDNil, false, err
		}
		t.setRoot(ref)
		t.count++
		return id, true, nil
	}

	cand, err := t.descend(key)
	if err != nil {
		return IDNil, false, err
	}
	candNode, err := t.readNode(cand)
	if err != nil {
		return IDNil, false, err
	}
	candKey, err := t.keyOf(candNode)
	if err != nil {
		return IDNil, false, err
	}
	_, _, _, equal := firstDiff(key, candKey)
	if equal {
		return t.leafID(cand), false, nil
	}

	id := t.allocID()
	if _, _, err := t.insertWithID(key, id); err != nil {
		return IDNil, false, err
	}
	t.count++
	return id, true, nil
}

// insertWithID splices key into the trie pointing at an id that may
// already be assigned to another key (used for sis-mode suffix entries).
// If an equal key is already present, the trie is left unchanged and that
// key's leaf is returned with false.
func (t *Trie) insertWithID(key []byte, id ID) (nodeRef, bool, error) {
	if t.root == 0 {
		ref, err := t.newLeaf(key, id)
		if err != nil {
			return 0, false, err
		}
		t.setRoot(ref)
		return ref, true, nil
	}

	cand, err := t.descend(key)
	if err != nil {
		return 0, false, err
	}
	candNode, err := t.readNode(cand)
	if err != nil {
		return 0, false, err
	}
	candKey, err := t.keyOf(candNode)
	if err != nil {
		return 0, false, err
	}
	if bytes.Equal(key, candKey) {
		// Same key already present (possibly under a different id in sis
		// mode); leave the trie shape alone.
		return cand, false, nil
	}
	pos, lenKind, _, _ := firstDiff(key, candKey)

	newLeafRef, err := t.newLeaf(key, id)
	if err != nil {
		return 0, false, err
	}

	splitNode := node{isLeaf: false, lenKind: lenKind, pos: pos}
	dir := testKey(key, splitNode)

	// Walk from root again to find the splice point: the first branch
	// node whose test comes at or after the new one, or a leaf. At equal
	// positions a length test comes before a bit test.
	var (
		parent     nodeRef
		parentLeft bool
		ref        = t.root
	)
	for {
		n, err := t.readNode(ref)
		if err != nil {
			return 0, false, err
		}
		if n.isLeaf || n.pos > pos || (n.pos == pos && (lenKind || !n.lenKind)) {
			break
		}
		parent = ref
		if testKey(key, n) == 0 {
			parentLeft = true
			ref = n.left
		} else {
			parentLeft = false
			ref = n.right
		}
	}

	if dir == 0 {
		splitNode.left = newLeafRef
		splitNode.right = ref
	} else {
		splitNode.left = ref
		splitNode.right = newLeafRef
	}
	splitRef, err := t.appendNode(splitNode)
	if err != nil {
		return 0, false, err
	}

	if parent == 0 {
		t.setRoot(splitRef)
		return newLeafRef, true, nil
	}
	pn, err := t.readNode(parent)
	if err != nil {
		return 0, false, err
	}
	if parentLeft {
		pn.left = splitRef
	} else {
		pn.right = splitRef
	}
	if err := t.writeNode(parent, pn); err != nil {
		return 0, false, err
	}
	return newLeafRef, true, nil
}

func (t *Trie) newLeaf(key []byte, id ID) (nodeRef, error) {
	off, err := t.keyArena.Append(key)
	if err != nil {
		return 0, err
	}
	t.persistLengths()
	// Leaf records don't need left/right children, so the left field
	// doubles as the leaf's public id.
	ref, err := t.appendNode(node{isLeaf: true, keyOff: off, keyLen: int32(len(key)), left: nodeRef(id)})
	if err != nil {
		return 0, err
	}
	t.setIDSlot(id, ref)
	return ref, nil
}

func (t *Trie) allocID() ID {
	if n := len(t.freeIDs); n > 0 {
		id := t.freeIDs[n-1]
		t.freeIDs = t.freeIDs[:n-1]
		return id
	}
	id := ID(len(t.idToIdx))
	t.idToIdx = append(t.idToIdx, 0)
	return id
}

func (t *Trie) setIDSlot(id ID, ref nodeRef) {
	for int(id) >= len(t.idToIdx) {
		t.idToIdx = append(t.idToIdx, 0)
	}
	t.idToIdx[id] = int64(ref)
}

func (t *Trie) leafID(ref nodeRef) ID {
	n, err := t.readNode(ref)
	if err != nil {
		return IDNil
	}
	return ID(n.left)
}
