// Package sais implements the common-substring discovery scan: suffix
// array and LCP array construction over a concatenated byte corpus,
// followed by a stack-based grouping pass that extracts maximal
// substrings shared by two or more distinct inputs.
package sais

// buildSuffixArray returns the suffix array of data using a doubling
// rank-sort construction: O(log n) rounds, each a comparison sort, so
// O(n log² n) comparisons overall. data must be
// non-empty; the returned array has length len(data).
func buildSuffixArray(data []byte) []int {
	n := len(data)
	sa := make([]int, n)
	rank := make([]int, n)
	tmp := make([]int, n)

	for i := 0; i < n; i++ {
		sa[i] = i
		rank[i] = int(data[i])
	}

	for k := 1; k < n; k *= 2 {
		keyFor := func(i int) (int, int) {
			r1 := rank[i]
			r2 := -1
			if i+k < n {
				r2 = rank[i+k]
			}
			return r1, r2
		}

		sortSuffixes(sa, keyFor)

		tmp[sa[0]] = 0
		for i := 1; i < n; i++ {
			tmp[sa[i]] = tmp[sa[i-1]]
			a1, a2 := keyFor(sa[i-1])
			b1, b2 := keyFor(sa[i])
			if a1 != b1 || a2 != b2 {
				tmp[sa[i]]++
			}
		}
		copy(rank, tmp)

		if rank[sa[n-1]] == n-1 {
			break
		}
	}

	return sa
}

// sortSuffixes sorts indices by the (r1, r2) key pair returned by
// keyFor, using an in-place quicksort that switches to insertion sort on
// short ranges.
func sortSuffixes(sa []int, keyFor func(int) (int, int)) {
	quickSortSA(sa, keyFor, 0, len(sa)-1)
}

func quickSortSA(sa []int, keyFor func(int) (int, int), lo, hi int) {
	for lo < hi {
		if hi-lo < 12 {
			insertionSortSA(sa, keyFor, lo, hi)
			return
		}
		p := partitionSA(sa, keyFor, lo, hi)
		if p-lo < hi-p {
			quickSortSA(sa, keyFor, lo, p-1)
			lo = p + 1
		} else {
			quickSortSA(sa, keyFor, p+1, hi)
			hi = p - 1
		}
	}
}

func insertionSortSA(sa []int, keyFor func(int) (int, int), lo, hi int) {
	for i := lo + 1; i <= hi; i++ {
		v := sa[i]
		v1, v2 := keyFor(v)
		j := i - 1
		for j >= lo {
			j1, j2 := keyFor(sa[j])
			if j1 < v1 || (j1 == v1 && j2 <= v2) {
				break
			}
			sa[j+1] = sa[j]
			j--
		}
		sa[j+1] = v
	}
}

func partitionSA(sa []int, keyFor func(int) (int, int), lo, hi int) int {
	mid := lo + (hi-lo)/2
	sa[mid], sa[hi] = sa[hi], sa[mid]
	pv1, pv2 := keyFor(sa[hi])
	i := lo
	for j := lo; j < hi; j++ {
		j1, j2 := keyFor(sa[j])
		if j1 < pv1 || (j1 == pv1 && j2 < pv2) {
			sa[i], sa[j] = sa[j], sa[i]
			i++
		}
	}
	sa[i], sa[hi] = sa[hi], sa[i]
	return i
}

// buildLCPArray returns the LCP array for data given its suffix array,
// using Kasai's linear-time construction. lcp[0] is always 0; lcp[i] is
// the length of the common prefix of the suffixes at sa[i-1] and sa[i].
func buildLCPArray(data []byte, sa []int) []int {
	n := len(data)
	lcp := make([]int, n)
	rank := make([]int, n)
	for i, s := range sa {
		rank[s] = i
	}

	h := 0
	for i := 0; i < n; i++ {
		if rank[i] == 0 {
			h = 0
			continue
		}
		j := sa[rank[i]-1]
		for i+h < n && j+h < n && data[i+h] == data[j+h] {
			h++
		}
		lcp[rank[i]] = h
		if h > 0 {
			h--
		}
	}
	return lcp
}
