package service

import "time"

var timeNow = time.Now
