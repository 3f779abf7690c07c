/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package savestore_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/tickharness/tickharness/pkg/savestore"
)

func behavesLikeAStore(newStore func() savestore.Store) {
	var store savestore.Store

	BeforeEach(func() {
		store = newStore()
	})

	It("loads what was saved", func() {
		Expect(store.Save("RecordedTestData/Map/Pawn_Recording", []byte("blob"))).To(Succeed())

		data, err := store.Load("RecordedTestData/Map/Pawn_Recording")
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal([]byte("blob")))

		exists, err := store.Exists("RecordedTestData/Map/Pawn_Recording")
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeTrue())
	})

	It("overwrites previous data", func() {
		Expect(store.Save("a/b", []byte("first"))).To(Succeed())
		Expect(store.Save("a/b", []byte("second"))).To(Succeed())

		data, err := store.Load("a/b")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("second"))
	})

	It("reports missing paths", func() {
		_, err := store.Load("missing")
		Expect(savestore.IsNotFound(err)).To(BeTrue())

		exists, err := store.Exists("missing")
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeFalse())
	})
}

var _ = Describe("Stores", func() {
	var tmpDir string

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "savestore")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("MemoryStore", func() {
		behavesLikeAStore(func() savestore.Store {
			return savestore.NewMemoryStore()
		})

		It("copies the saved bytes", func() {
			store := savestore.NewMemoryStore()
			data := []byte("abc")
			Expect(store.Save("x", data)).To(Succeed())
			data[0] = 'z'

			loaded, err := store.Load("x")
			Expect(err).NotTo(HaveOccurred())
			Expect(string(loaded)).To(Equal("abc"))
			Expect(store.Paths()).To(ConsistOf("x"))
		})
	})

	Describe("FileStore", func() {
		behavesLikeAStore(func() savestore.Store {
			return &savestore.FileStore{Root: tmpDir}
		})

		It("creates intermediate directories and leaves no temporary files", func() {
			store := &savestore.FileStore{Root: tmpDir}
			Expect(store.Save("deep/er/file", []byte("x"))).To(Succeed())

			entries, err := os.ReadDir(filepath.Join(tmpDir, "deep", "er"))
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].Name()).To(Equal("file"))
		})
	})

	Describe("BadgerStore", func() {
		var stores []*savestore.BadgerStore

		AfterEach(func() {
			for _, s := range stores {
				s.Close()
			}
			stores = nil
		})

		behavesLikeAStore(func() savestore.Store {
			store, err := savestore.OpenBadger("", nil)
			Expect(err).NotTo(HaveOccurred())
			stores = append(stores, store)
			return store
		})

		It("persists across reopen and lists keys by prefix", func() {
			dbDir := filepath.Join(tmpDir, "db")
			store, err := savestore.OpenBadger(dbDir, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Save("RecordedTestData/A/x_Recording", []byte("1"))).To(Succeed())
			Expect(store.Save("RecordedTestData/B/y_Recording", []byte("2"))).To(Succeed())
			Expect(store.Save("Other/z", []byte("3"))).To(Succeed())
			Expect(store.Sync()).To(Succeed())
			Expect(store.Close()).To(Succeed())

			store, err = savestore.OpenBadger(dbDir, nil)
			Expect(err).NotTo(HaveOccurred())
			stores = append(stores, store)

			keys, err := store.Keys("RecordedTestData/")
			Expect(err).NotTo(HaveOccurred())
			Expect(keys).To(Equal([]string{
				"RecordedTestData/A/x_Recording",
				"RecordedTestData/B/y_Recording",
			}))
		})
	})
})
