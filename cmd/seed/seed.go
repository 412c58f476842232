package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/BorisDmv/blog-cms/internal/apperr"
	"github.com/BorisDmv/blog-cms/internal/auth"
	"github.com/BorisDmv/blog-cms/internal/posts"
)

type options struct {
	reset         bool
	adminEmail    string
	adminPassword string
	adminUsername string
}

var samplePosts = []posts.CreateInput{
	{
		Title:   "Manfaat Bangun Pagi untuk Kesehatan Tubuh",
		Content: "Bangun pagi memberikan banyak manfaat seperti udara segar, suasana tenang, dan waktu yang lebih produktif.",
		Author:  "Aulia Rahma",
		Tags:    []string{"kesehatan", "gaya hidup"},
		Image:   "https://res.cloudinary.com/dk0z4ums3/image/upload/v1711096096/attached_image/manfaat-bangun-pagi-dan-cara-mudah-melakukannya-0-alodokter.jpg",
	},
	{
		Title:   "7 Tempat Wisata Alam Tersembunyi di Indonesia",
		Content: "Indonesia memiliki berbagai destinasi alam yang masih belum banyak diketahui. Berikut 7 di antaranya.",
		Author:  "Dimas Nugraha",
		Tags:    []string{"travel", "wisata", "alam"},
		Image:   "https://tribratanews.polri.go.id/web/image/blog.post/50991/image",
	},
	{
		Title:   "Tips Mengelola Waktu di Era Digital",
		Content: "Mengelola waktu secara efektif menjadi semakin penting di tengah gangguan dari media sosial dan internet.",
		Author:  "Sinta Marlina",
		Tags:    []string{"produktif", "waktu", "motivasi"},
		Image:   "https://wqa.co.id/wp-content/uploads/2021/04/manajemen-waktu.png",
	},
	{
		Title:   "Mengenal Makanan Tradisional Khas Nusantara",
		Content: "Setiap daerah di Indonesia punya makanan tradisional unik dengan cita rasa khas yang patut dicoba.",
		Author:  "Hana Putri",
		Tags:    []string{"kuliner", "tradisional", "nusantara"},
		Image:   "https://mediaindonesia.gumlet.io/news/2024/03/43d03d639383ac6dcb2c75730d394c6e.jpg?w=700&dpr=1.5",
	},
	{
		Title:   "Cara Menjaga Kesehatan Mental di Tengah Kesibukan",
		Content: "Kesehatan mental sering terlupakan saat sibuk. Padahal, menjaga keseimbangan pikiran sangat penting.",
		Author:  "Reza Aditya",
		Tags:    []string{"kesehatan", "mental", "psikologi"},
		Image:   "https://iik.ac.id/blog/wp-content/uploads/2024/10/manajemen-kesehatan.jpeg",
	},
	{
		Title:   "Inspirasi Dekorasi Minimalis untuk Ruang Tamu",
		Content: "Dekorasi ruang tamu dengan gaya minimalis menciptakan kesan bersih, luas, dan nyaman untuk keluarga.",
		Author:  "Indriani Syahputra",
		Tags:    []string{"dekorasi", "interior", "minimalis"},
		Image:   "https://balisunsetroadconvention.com/wp-content/uploads/2024/06/dekorasi-indoor-pernikahan-dengan-perpaduan-kayu.jpg",
	},
	{
		Title:   "Buku Cerita",
		Content: "Buku yg sangat bagus",
		Author:  "Wanda",
		Tags:    []string{"123"},
		Image:   "https://res.cloudinary.com/dkmdopf6y/image/upload/v1751867849/posts/vumb7egzjqutcti91btc.jpg",
	},
}

// seed is safe to run repeatedly: posts whose slug already exists are
// skipped and the admin account is only created once.
func seed(ctx context.Context, postSvc *posts.Service, authSvc *auth.Service, opts options, log *logrus.Entry) error {
	if opts.reset {
		existing, err := postSvc.List(ctx, 0, 0)
		if err != nil {
			return fmt.Errorf("list posts: %w", err)
		}
		for _, p := range existing {
			if err := postSvc.Delete(ctx, p.ID); err != nil && !apperr.IsNotFound(err) {
				return fmt.Errorf("delete post %s: %w", p.ID, err)
			}
		}
		log.WithField("deleted", len(existing)).Info("existing posts removed")
	}

	var created, skipped int
	for _, in := range samplePosts {
		_, err := postSvc.Create(ctx, in)
		var dup *apperr.DuplicateSlugError
		switch {
		case errors.As(err, &dup):
			skipped++
		case err != nil:
			return fmt.Errorf("create %q: %w", in.Title, err)
		default:
			created++
		}
	}
	log.WithFields(logrus.Fields{"created": created, "skipped": skipped}).Info("sample posts seeded")

	adminCreated, err := authSvc.EnsureAdmin(ctx, auth.RegisterInput{
		Email:    opts.adminEmail,
		Password: opts.adminPassword,
		Username: opts.adminUsername,
	})
	if err != nil {
		return fmt.Errorf("admin account: %w", err)
	}
	if adminCreated {
		log.WithField("email", opts.adminEmail).Info("admin account created")
	} else {
		log.WithField("email", opts.adminEmail).Info("admin account already exists")
	}
	return nil
}
