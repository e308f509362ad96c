package main

import (
	"github.com/sirupsen/logrus"

	"github.com/dannyswat/fsrtree/rtree"
	"github.com/dannyswat/fsrtree/rtree/splittype"
)

func main() {
	log := logrus.New()
	log.SetLevel(logrus.DebugLevel)

	db, err := rtree.OpenDatabase(&rtree.FileProvider{}, "mydb", log)
	if err != nil {
		log.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	err = db.EnsureCreatedIndex(rtree.IndexDefinition{
		Name:           "places",
		MaxElements:    4,
		Split:          splittype.Quadratic,
		CRS:            "EPSG:4326",
		BranchGrafting: true,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create index")
	}
	places, err := db.GetIndex("places")
	if err != nil {
		log.WithError(err).Fatal("failed to open index")
	}

	boxes := map[int64][]float64{
		1: {0, 0, 1, 1},
		2: {5, 5, 6, 6},
		3: {10, 10, 11, 11},
		4: {2, 8, 3, 9},
		5: {7, 1, 8, 2},
	}
	for id := int64(1); id <= int64(len(boxes)); id++ {
		if err := places.Insert(id, boxes[id]...); err != nil {
			log.WithError(err).Fatal("insert failed")
		}
	}
	ids, err := places.SearchID(0, 0, 6, 6)
	if err != nil {
		log.WithError(err).Fatal("search failed")
	}
	log.WithField("ids", ids).Info("found entries in [0,0,6,6]")

	if _, err := places.Remove(int64(2), boxes[2]...); err != nil {
		log.WithError(err).Fatal("remove failed")
	}
	if err := places.Validate(); err != nil {
		log.WithError(err).Fatal("index is corrupt")
	}
	log.WithField("entries", places.Len()).Info("removed entry 2")
}
