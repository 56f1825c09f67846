package pat

import "bytes"

// Lookup resolves key according to flags (spec.md §4.1): FlagAdd creates
// the key if absent, FlagExact requires an exact match, and FlagLCP falls
// back to the longest registered key that is a prefix of key when no
// exact match exists.
func (t *Trie) Lookup(key []byte, flags Flags) (ID, error) {
	if flags&FlagAdd != 0 {
		return t.Add(key)
	}
	if len(key) > MaxKey {
		return IDNil, errInvalidKey(len(key))
	}
	if t.root != 0 {
		cand, err := t.descend(key)
		if err != nil {
			return IDNil, err
		}
		n, err := t.readNode(cand)
		if err != nil {
			return IDNil, err
		}
		candKey, err := t.keyOf(n)
		if err != nil {
			return IDNil, err
		}
		if bytes.Equal(key, candKey) {
			return ID(n.left), nil
		}
	}
	if flags&FlagLCP != 0 {
		id, _, err := t.LCPSearch(key)
		if err == nil {
			return id, nil
		}
	}
	return IDNil, errNotFound(key)
}

// LCPSearch returns the id and matched bytes of the longest registered key
// that is a byte-prefix of key. It tries successively shorter prefixes of
// key via exact lookup; this trades asymptotic optimality (a dedicated
// single-descent LCP walk) for a much simpler implementation built
// entirely out of the same exact-match descent used by Lookup — see
// DESIGN.md.
func (t *Trie) LCPSearch(key []byte) (ID, []byte, error) {
	if t.root == 0 {
		return IDNil, nil, errNotFound(key)
	}
	for n := len(key); n > 0; n-- {
		prefix := key[:n]
		cand, err := t.descend(prefix)
		if err != nil {
			return IDNil, nil, err
		}
		node, err := t.readNode(cand)
		if err != nil {
			return IDNil, nil, err
		}
		candKey, err := t.keyOf(node)
		if err != nil {
			return IDNil, nil, err
		}
		if bytes.Equal(prefix, candKey) {
			return ID(node.left), candKey, nil
		}
	}
	return IDNil, nil, errNotFound(key)
}

// Hit is a single prefix/suffix search result.
type Hit struct {
	ID  ID
	Key []byte
}

// PrefixSearch returns every registered key that has prefix as a byte
// prefix. It descends to the smallest subtree guaranteed to contain every
// such key (stopping once a node's discriminating position moves past the
// end of prefix), confirms the subtree actually matches via one
// representative leaf, then enumerates the whole subtree.
func (t *Trie) PrefixSearch(prefix []byte) ([]Hit, error) {
	return t.subtreeSearch(prefix)
}

// SuffixSearch returns the registered entries that end with suffix. In sis
// mode (spec.md glossary, "sis mode"), where every trailing substring of
// every key is registered as well, that is every entry ending with suffix;
// without sis mode only a stored key equal to suffix itself is returned. Unlike
// PrefixSearch, a trailing match can't be localized to one subtree by
// bit-position alone, so this walks every entry rather than descending —
// a deliberate simplicity/efficiency trade-off, see DESIGN.md.
func (t *Trie) SuffixSearch(suffix []byte) ([]Hit, error) {
	if t.root == 0 {
		return nil, errEndOfData()
	}
	var hits []Hit
	if err := t.walkSubtree(t.root, func(k []byte, id ID) {
		if bytes.HasSuffix(k, suffix) && (t.sis || len(k) == len(suffix)) {
			hits = append(hits, Hit{ID: id, Key: append([]byte(nil), k...)})
		}
	}); err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, errEndOfData()
	}
	return hits, nil
}

func (t *Trie) subtreeSearch(prefix []byte) ([]Hit, error) {
	if t.root == 0 {
		return nil, errEndOfData()
	}
	boundary := int32(len(prefix)) * 8
	ref := t.root
	for {
		n, err := t.readNode(ref)
		if err != nil {
			return nil, err
		}
		if n.isLeaf || n.pos >= boundary {
			break
		}
		if testKey(prefix, n) == 0 {
			ref = n.left
		} else {
			ref = n.right
		}
	}

	repRef, err := t.leftmostLeaf(ref)
	if err != nil {
		return nil, err
	}
	repNode, err := t.readNode(repRef)
	if err != nil {
		return nil, err
	}
	repKey, err := t.keyOf(repNode)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(repKey, prefix) {
		return nil, errEndOfData()
	}

	var hits []Hit
	if err := t.walkSubtree(ref, func(k []byte, id ID) {
		hits = append(hits, Hit{ID: id, Key: append([]byte(nil), k...)})
	}); err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, errEndOfData()
	}
	return hits, nil
}

// walkSubtree visits every leaf under ref in ascending key order.
func (t *Trie) walkSubtree(ref nodeRef, fn func(key []byte, id ID)) error {
	n, err := t.readNode(ref)
	if err != nil {
		return err
	}
	if n.isLeaf {
		key, err := t.keyOf(n)
		if err != nil {
			return err
		}
		fn(key, ID(n.left))
		return nil
	}
	if err := t.walkSubtree(n.left, fn); err != nil {
		return err
	}
	return t.walkSubtree(n.right, fn)
}

// Key returns the stored key bytes for id.
func (t *Trie) Key(id ID) ([]byte, error) {
	if id <= 0 || int(id) >= len(t.idToIdx) || t.idToIdx[id] == 0 {
		return nil, errNotFound(nil)
	}
	n, err := t.readNode(nodeRef(t.idToIdx[id]))
	if err != nil {
		return nil, err
	}
	return t.keyOf(n)
}
